// Package sched implements the lane scheduler: it tracks which batch (if
// any) currently occupies each lane and that batch's root contexts, applies
// the job batcher's per-frame updates, and dispatches sync work inline and
// async work onto the worker pool. Each async dispatch carries a
// CommitBarrier that its task releases when the walk returns; the scheduler
// does not wait on that barrier, and does not commit or remove an async
// batch when it drains. It is grounded on gioverse-chat's async.DynamicWorkerPool
// fork/join shape, generalized from a flat load-request queue to a tree of
// lane-tagged reconcile walks.
package sched

import (
	"context"
	"fmt"
	"sync"

	"github.com/arbor-ui/arbor/internal/barrier"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/workerpool"
)

// Walker runs one lane's reconcile pass starting from roots, under ctx
// (cancelled if the lane is purged mid-flight). It is supplied by the
// frame driver, which owns the concrete element tree.
type Walker func(ctx context.Context, roots []*tree.Node, lanePos lane.Pos, batch *job.BatchConf) error

// occupant is what currently lives in a lane slot.
type occupant struct {
	batch  *job.BatchConf
	roots  []*tree.Node
	cancel context.CancelFunc
	done   chan struct{}
	commit barrier.CommitBarrier
}

// Scheduler is the lane → (batch, roots) table plus dispatch machinery.
type Scheduler struct {
	pool *workerpool.Pool

	mu      sync.Mutex
	lanes   map[lane.Pos]*occupant
	freeAsync []int
	nextAsync int
}

// New constructs a scheduler dispatching work onto pool.
func New(pool *workerpool.Pool) *Scheduler {
	return &Scheduler{pool: pool, lanes: make(map[lane.Pos]*occupant)}
}

// allocateAsyncLane hands out the most recently released async lane
// position, or the next never-used one when none is free.
func (s *Scheduler) allocateAsyncLane() lane.Pos {
	if n := len(s.freeAsync); n > 0 {
		i := s.freeAsync[n-1]
		s.freeAsync = s.freeAsync[:n-1]
		return lane.Async(i)
	}
	i := s.nextAsync
	s.nextAsync++
	return lane.Async(i)
}

func (s *Scheduler) releaseAsyncLane(p lane.Pos) {
	if p.IsSync() {
		return
	}
	s.freeAsync = append(s.freeAsync, int(p))
}

// markRoots sets mailbox marks for p on every root so SubtreeLanes queries
// during the walk see this lane as live across the affected subtrees.
func markRoots(roots []*tree.Node, p lane.Pos) {
	for _, r := range roots {
		r.AddMailboxLane(p)
	}
}

func clearRoots(roots []*tree.Node, p lane.Pos) {
	for _, r := range roots {
		r.ClearMailboxLane(p)
	}
}

// ApplyBatchUpdates applies one frame's worth of job.BatchResult: expired
// async batches are purged and their lanes released; new async batches get
// a freshly allocated lane and an immediate dispatch; a new sync batch
// marks its roots on the Sync lane (dispatch happens separately via
// DispatchSync, since the frame driver runs it inline and blocking).
func (s *Scheduler) ApplyBatchUpdates(result job.BatchResult, walk Walker) {
	s.mu.Lock()
	for _, expired := range result.ExpiredBatches {
		for p, occ := range s.lanes {
			if occ.batch != nil && occ.batch.ID == expired {
				s.purgeLocked(p)
				delete(s.lanes, p)
				s.releaseAsyncLane(p)
			}
		}
	}
	s.mu.Unlock()

	for _, batch := range result.NewAsyncBatches {
		s.dispatchAsync(batch, walk)
	}

	if result.NewSyncBatch != nil {
		roots := rootSlice(result.NewSyncBatch)
		markRoots(roots, lane.Sync)
		s.mu.Lock()
		s.lanes[lane.Sync] = &occupant{batch: result.NewSyncBatch, roots: roots}
		s.mu.Unlock()
	}
}

func rootSlice(conf *job.BatchConf) []*tree.Node {
	roots := make([]*tree.Node, 0, len(conf.Roots))
	for r := range conf.Roots {
		if n, ok := r.(*tree.Node); ok {
			roots = append(roots, n)
		}
	}
	return roots
}

// DispatchSync runs walk inline (on the caller's goroutine, itself backed
// by the pool for any internal fan-out) against the current sync batch, if
// any, then clears the sync lane.
func (s *Scheduler) DispatchSync(ctx context.Context, walk Walker) error {
	s.mu.Lock()
	occ, ok := s.lanes[lane.Sync]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	err := walk(ctx, occ.roots, lane.Sync, occ.batch)
	clearRoots(occ.roots, lane.Sync)
	s.mu.Lock()
	delete(s.lanes, lane.Sync)
	s.mu.Unlock()
	return err
}

// dispatchAsync allocates a lane for batch, marks its roots, and spawns a
// pool task running walk; the task's CommitBarrier is released when the
// walk returns, regardless of outcome.
func (s *Scheduler) dispatchAsync(batch *job.BatchConf, walk Walker) {
	p := s.allocateAsyncLane()
	roots := rootSlice(batch)
	markRoots(roots, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	commit := barrier.New()
	s.mu.Lock()
	s.lanes[p] = &occupant{batch: batch, roots: roots, cancel: cancel, done: done, commit: commit}
	s.mu.Unlock()

	go func() {
		s.pool.Scope(context.Background(), func(scopeCtx context.Context, scope *workerpool.Scope) error {
			scope.Go(func(taskCtx context.Context) error {
				defer close(done)
				defer commit.Release()
				return walk(ctx, roots, p, batch)
			})
			return nil
		})
	}()
}

func (s *Scheduler) purgeLocked(p lane.Pos) {
	occ, ok := s.lanes[p]
	if !ok {
		return
	}
	if occ.cancel != nil {
		occ.cancel()
	}
	clearRoots(occ.roots, p)
}

// Purge aborts lane p's current async work across the whole lane (it is
// not scoped to a subtree), clears its root marks and releases the lane,
// without requeuing. Effects already committed are not rolled back
// here; rollback of subscriptions/reservations is the caller's (the
// reconciler's) responsibility, since only it knows what it touched.
func (s *Scheduler) Purge(p lane.Pos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(p)
	delete(s.lanes, p)
	s.releaseAsyncLane(p)
}

// Cancel is Purge: it aborts and releases lane p. It neither requeues the
// lane's work nor marks it for another dispatch.
func (s *Scheduler) Cancel(p lane.Pos) {
	s.Purge(p)
}

// Remove drops lane p's bookkeeping without cancelling its context, for
// the case where the lane's work already ran to completion on its own
// (e.g. a provider write that committed normally) and only the table entry
// needs clearing — unlike Purge, which aborts an in-flight walk, Remove
// assumes nothing is still running.
func (s *Scheduler) Remove(p lane.Pos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	occ, ok := s.lanes[p]
	if !ok {
		return
	}
	clearRoots(occ.roots, p)
	delete(s.lanes, p)
	s.releaseAsyncLane(p)
}

// ReorderAsyncWork resolves priority contention between two lanes that
// both want to occupy the same provider: winner keeps running and loser is
// purged so it can be rebatched and retried against the provider's new
// state. This is the scheduler-side half of the provider reservation
// protocol's reorderReservation callback.
func (s *Scheduler) ReorderAsyncWork(winner, loser lane.Pos) {
	if winner == loser {
		return
	}
	s.Purge(loser)
}

// CommitBarrier returns the commit barrier for lane p's current async
// dispatch, if one is live. The frame driver passes it into the lane's
// BuildContext; nothing in this module waits on it.
func (s *Scheduler) CommitBarrier(p lane.Pos) (barrier.CommitBarrier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	occ, ok := s.lanes[p]
	if !ok {
		return barrier.CommitBarrier{}, false
	}
	return occ.commit, true
}

// Occupant reports the lane currently occupying node's subtree, if any,
// by checking its SubtreeLanes mask against the table of live lanes.
func (s *Scheduler) Occupant(n *tree.Node) (lane.Pos, bool) {
	mask := n.SubtreeLanes()
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.lanes {
		if mask.Has(p) {
			return p, true
		}
	}
	return lane.Sync, false
}

// String renders a debug summary of the lane table.
func (s *Scheduler) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("sched.Scheduler{lanes=%d}", len(s.lanes))
}
