package hook

import "github.com/arbor-ui/arbor/job"

// TransitionState is the cell backing use_transition: it remembers the
// batch its last Start call produced so IsPending can report whether that
// batch is still outstanding.
//
// "Pending" is computed from whether the backing async batch still exists
// in the scheduler. The precise boundary is a deliberate decision: a
// transition is pending from the moment Start submits its batch until the
// caller-supplied batchLive predicate reports the batch gone (committed,
// cancelled, or expired-and-rebatched all count as "gone" here — a
// rebatch mid-transition starts a new pending window the next time Start
// is called, rather than the original IsPending call silently flipping to
// true again for an unrelated batch).
type TransitionState struct {
	pendingBatch *job.BatchID
}

// UseTransition returns this element's transition cell, stable across
// rebuilds.
func UseTransition(s *Sequence) *TransitionState {
	c := s.next(kindTransition, func() *cell { return &cell{kind: kindTransition, value: &TransitionState{}} })
	ts, _ := c.value.(*TransitionState)
	return ts
}

// Start wraps a state update into a low-priority async batch by invoking
// submit, which is expected to build and submit a job.Builder at
// job.Low priority and return the resulting batch id once the batcher
// assigns one. The transition is considered pending from this call until
// IsPending observes the batch is gone.
func (t *TransitionState) Start(submit func(priority job.Priority) job.BatchID) {
	id := submit(job.Low)
	t.pendingBatch = &id
}

// IsPending reports whether the transition's most recently started batch
// is still live, per batchLive. Once the batch is no longer live, the
// cell forgets it so a later Start is required to become pending again.
func (t *TransitionState) IsPending(batchLive func(job.BatchID) bool) bool {
	if t.pendingBatch == nil {
		return false
	}
	if !batchLive(*t.pendingBatch) {
		t.pendingBatch = nil
		return false
	}
	return true
}
