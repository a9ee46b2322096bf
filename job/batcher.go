package job

import (
	"fmt"

	"github.com/google/uuid"
)

// BatchID uniquely identifies a batch: a set of jobs committed together,
// whose priority is the minimum of its members' priorities.
type BatchID struct {
	n     uint64
	token uuid.UUID
}

func (b BatchID) String() string { return fmt.Sprintf("Batch(%d,%s)", b.n, b.token.String()[:8]) }

// BatchConf is the frozen description of a batch: its member jobs, the
// union of their roots, and the minimum of their priorities.
type BatchConf struct {
	ID       BatchID
	Priority Priority
	Jobs     []ID
	Roots    map[Root]struct{}
	sync     bool
}

func (b *BatchConf) IsSync() bool { return b.sync }

type jobData struct {
	conf          Conf
	batch         *BatchID
	sequencedJobs []ID
}

func (d *jobData) isSync() bool { return d.conf.IsSync() }

// Batcher assigns every live job to exactly one batch per frame, reporting
// batches that expired because a member became sequenced with a job
// outside it.
type Batcher struct {
	jobs           map[ID]*jobData
	batches        map[BatchID]*BatchConf
	batchIDCounter uint64
}

// NewBatcher constructs an empty batcher.
func NewBatcher() *Batcher {
	return &Batcher{
		jobs:    make(map[ID]*jobData),
		batches: make(map[BatchID]*BatchConf),
	}
}

func (j *Batcher) nextBatchID() BatchID {
	j.batchIDCounter++
	return BatchID{n: j.batchIDCounter, token: uuid.New()}
}

// Submit registers newly-built jobs with the batcher, wiring the
// bidirectional sequenced-with edges recorded in each Builder.
//
// A sequenced job that no longer exists in j.jobs is tolerated rather than
// asserted against (unlike the Rust source's debug_assert): the
// cross-frame sequencing rule is left permissive here, and a same-frame
// caller racing batch removal should not panic the scheduler over it.
func (j *Batcher) Submit(builders []*Builder) {
	for _, b := range builders {
		j.jobs[b.Conf.ID] = &jobData{conf: b.Conf}
	}
	for _, b := range builders {
		data, ok := j.jobs[b.Conf.ID]
		if !ok {
			continue
		}
		for _, seqID := range b.ExistingSequencedJobs {
			seqData, ok := j.jobs[seqID]
			if !ok {
				continue
			}
			if seqID.Frame > b.Conf.ID.Frame {
				// A job cannot be sequenced with a job from a future frame;
				// tolerated here, see the doc comment above.
				continue
			}
			data.sequencedJobs = append(data.sequencedJobs, seqID)
			seqData.sequencedJobs = append(seqData.sequencedJobs, b.Conf.ID)
		}
	}
}

// RemoveCommittedBatch removes a batch (and its member jobs) after the
// scheduler has committed its effects, also unwiring each member's
// sequenced-with edges so stale references don't leak.
func (j *Batcher) RemoveCommittedBatch(id BatchID) {
	conf, ok := j.batches[id]
	if !ok {
		panic(fmt.Sprintf("job: RemoveCommittedBatch called on unknown batch %v", id))
	}
	delete(j.batches, id)
	for _, jobID := range conf.Jobs {
		data, ok := j.jobs[jobID]
		if !ok {
			continue
		}
		delete(j.jobs, jobID)
		for _, seqID := range data.sequencedJobs {
			if seqData, ok := j.jobs[seqID]; ok {
				seqData.sequencedJobs = removeID(seqData.sequencedJobs, jobID)
			}
		}
	}
}

func removeID(ids []ID, target ID) []ID {
	for i, id := range ids {
		if id == target {
			last := len(ids) - 1
			ids[i] = ids[last]
			return ids[:last]
		}
	}
	return ids
}

// BatchResult is the per-frame batching output: batches that expired,
// freshly formed async batches, and an optional freshly formed sync batch.
type BatchResult struct {
	ExpiredBatches  []BatchID
	NewAsyncBatches []*BatchConf
	NewSyncBatch    *BatchConf
}

// GetBatchUpdates runs one frame of batching: it expires async batches that
// became open under the sequenced relation, assigns every sync job of the
// current frame into exactly one sync batch, and BFS-partitions the
// remaining (async) jobs into new async batches.
func (j *Batcher) GetBatchUpdates() BatchResult {
	var expired []BatchID
	for batchID, conf := range j.batches {
		closed := true
		for _, jobID := range conf.Jobs {
			data := j.jobs[jobID]
			for _, seqID := range data.sequencedJobs {
				seqData, ok := j.jobs[seqID]
				if !ok || seqData.batch == nil || *seqData.batch != batchID {
					closed = false
					break
				}
			}
			if !closed {
				break
			}
		}
		if !closed {
			if conf.IsSync() {
				panic("job: a sync batch should always complete successfully, not expire")
			}
			expired = append(expired, batchID)
			for _, jobID := range conf.Jobs {
				if data, ok := j.jobs[jobID]; ok {
					data.batch = nil
				}
			}
			delete(j.batches, batchID)
		}
	}

	// Collect the sync batch: every currently-live sync job, BFS-unioned
	// along the sequenced relation, forms exactly one batch this frame.
	syncBatchID := j.nextBatchID()
	var syncJobs []ID
	havePriority := false
	var syncPriority Priority
	for id, data := range j.jobs {
		if !data.isSync() {
			continue
		}
		data.batch = &syncBatchID
		if !havePriority || data.conf.Priority < syncPriority {
			syncPriority = data.conf.Priority
			havePriority = true
		}
		syncJobs = append(syncJobs, id)
	}
	var newSyncBatch *BatchConf
	if havePriority {
		conf := j.bfsVisit(syncJobs, syncBatchID, syncPriority, true, func(d *jobData) bool {
			return d.isSync()
		})
		j.batches[syncBatchID] = conf
		newSyncBatch = conf
	} else {
		j.batchIDCounter--
	}

	// Collect async batches: BFS-partition every job with no batch yet.
	var newAsync []*BatchConf
	ids := make([]ID, 0, len(j.jobs))
	for id := range j.jobs {
		ids = append(ids, id)
	}
	for _, id := range ids {
		data, ok := j.jobs[id]
		if !ok || data.batch != nil {
			continue
		}
		newBatchID := j.nextBatchID()
		data.batch = &newBatchID
		priority := data.conf.Priority
		conf := j.bfsVisit([]ID{id}, newBatchID, priority, false, func(d *jobData) bool {
			return d.batch == nil
		})
		j.batches[newBatchID] = conf
		newAsync = append(newAsync, conf)
	}

	return BatchResult{ExpiredBatches: expired, NewAsyncBatches: newAsync, NewSyncBatch: newSyncBatch}
}

// bfsVisit breadth-first-searches the sequenced-with graph starting from
// seed, assigning every job that should be visited to newBatchID, and
// returns the resulting BatchConf (priority = min of members, roots =
// union of members' roots).
func (j *Batcher) bfsVisit(seed []ID, newBatchID BatchID, priority Priority, sync bool, shouldVisit func(*jobData) bool) *BatchConf {
	batchJobs := append([]ID(nil), seed...)
	roots := make(map[Root]struct{})
	for i := 0; i < len(batchJobs); i++ {
		id := batchJobs[i]
		data := j.jobs[id]
		for r := range data.conf.Roots {
			roots[r] = struct{}{}
		}
		priority = minPriority(priority, data.conf.Priority)
		for _, seqID := range append([]ID(nil), data.sequencedJobs...) {
			seqData, ok := j.jobs[seqID]
			if !ok || !shouldVisit(seqData) {
				continue
			}
			if seqData.batch == nil {
				seqData.batch = &newBatchID
				batchJobs = append(batchJobs, seqID)
			}
		}
	}
	return &BatchConf{ID: newBatchID, Priority: priority, Jobs: batchJobs, Roots: roots, sync: sync}
}

// DebugValidate checks cross-reference integrity between jobs and batches.
// It mirrors epgi-core's debug_validate_state_integrity, exposed as an
// ordinary helper (Go has no direct analogue of Rust's cfg(debug_assertions))
// for tests to call after mutating a Batcher.
func (j *Batcher) DebugValidate() error {
	for id, conf := range j.batches {
		if id != conf.ID {
			return fmt.Errorf("job: batch map key %v does not match stored id %v", id, conf.ID)
		}
	}
	for id, data := range j.jobs {
		if data.batch != nil {
			conf, ok := j.batches[*data.batch]
			if !ok {
				return fmt.Errorf("job: job %v points to dead batch %v", id, *data.batch)
			}
			found := false
			for _, member := range conf.Jobs {
				if member == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("job: job %v points to batch %v that does not contain it", id, *data.batch)
			}
		}
		for _, seqID := range data.sequencedJobs {
			if seqID == id {
				return fmt.Errorf("job: job %v lists itself as sequenced", id)
			}
			seqData, ok := j.jobs[seqID]
			if !ok {
				return fmt.Errorf("job: sequenced job %v of live job %v is missing", seqID, id)
			}
			reciprocal := false
			for _, back := range seqData.sequencedJobs {
				if back == id {
					reciprocal = true
					break
				}
			}
			if !reciprocal {
				return fmt.Errorf("job: sequenced relation between %v and %v is not bilateral", id, seqID)
			}
		}
	}
	for batchID, conf := range j.batches {
		for _, jobID := range conf.Jobs {
			data, ok := j.jobs[jobID]
			if !ok {
				return fmt.Errorf("job: batch %v references dead job %v", batchID, jobID)
			}
			if data.batch == nil || *data.batch != batchID {
				return fmt.Errorf("job: job %v inside batch %v does not point back to it", jobID, batchID)
			}
		}
	}
	return nil
}

// Live reports the number of jobs the batcher currently tracks. Useful for
// tests and for diagnostics in the frame driver.
func (j *Batcher) Live() int { return len(j.jobs) }
