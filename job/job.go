// Package job implements the per-frame job batcher: it groups
// user-submitted jobs into a sync batch and zero or more async batches
// according to a "sequenced with" relation, and reports which
// previously-formed async batches have since been invalidated.
package job

import (
	"fmt"

	"github.com/google/uuid"
)

// Priority orders batches; lower values run first. Immediate is reserved
// for work that must land in the sync batch. Normal and Low are the two
// async tiers a transition job can request (use_transition wraps updates
// into a low-priority async batch).
type Priority int

const (
	Immediate Priority = iota
	Normal
	Low
)

func (p Priority) String() string {
	switch p {
	case Immediate:
		return "Immediate"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// minPriority returns the higher-urgency (numerically smaller) of two priorities.
func minPriority(a, b Priority) Priority {
	if a < b {
		return a
	}
	return b
}

// Root identifies a tree-context node that roots a job's effect. Callers
// pass a *tree.Node (or any other comparable pointer identity); the
// job package never dereferences it, only uses it as a set member, so it
// does not need to import the tree package and risk an import cycle
// between mailbox bookkeeping (tree) and batching (job).
type Root = any

// ID uniquely identifies a job. Frame records the spawning frame so the
// batcher can drop a sequenced edge to a job from a later frame
// (epgi-core/src/scheduler/job_batcher.rs update_with_new_jobs asserts
// the same rule; Submit drops the edge instead of asserting). token
// disambiguates jobs minted within the same frame/seq pair, e.g. in
// tests that replay a frame counter from zero.
type ID struct {
	Frame uint64
	Seq   uint64
	token uuid.UUID
}

// NewID mints a fresh job identity for the given frame and in-frame
// sequence number.
func NewID(frame, seq uint64) ID {
	return ID{Frame: frame, Seq: seq, token: uuid.New()}
}

func (id ID) String() string {
	return fmt.Sprintf("Job(frame=%d,seq=%d,%s)", id.Frame, id.Seq, id.token.String()[:8])
}

// Conf is the immutable configuration of a submitted job: id, priority,
// the set of roots it affects, and whether it must run synchronously.
type Conf struct {
	ID       ID
	Priority Priority
	Roots    map[Root]struct{}
	Sync     bool
}

func (c Conf) IsSync() bool { return c.Sync }

// NewConf builds a Conf from a set of roots.
func NewConf(id ID, priority Priority, sync bool, roots ...Root) Conf {
	rootSet := make(map[Root]struct{}, len(roots))
	for _, r := range roots {
		rootSet[r] = struct{}{}
	}
	return Conf{ID: id, Priority: priority, Roots: rootSet, Sync: sync}
}

// Builder accumulates a job's configuration plus the set of already-live
// jobs it was found sequenced with (because a mailbox it targets already
// held them at submission time). The element package's mailbox push
// populates ExistingSequencedJobs as it walks targeted context nodes;
// job.Batcher.Submit uses it to wire the bidirectional "sequenced with"
// edges between jobs.
type Builder struct {
	Conf                  Conf
	ExistingSequencedJobs []ID
}

// NewBuilder starts a job builder for the given identity/priority/sync-ness.
func NewBuilder(id ID, priority Priority, sync bool) *Builder {
	return &Builder{Conf: Conf{ID: id, Priority: priority, Roots: map[Root]struct{}{}, Sync: sync}}
}

// AddRoot records that this job affects the subtree rooted at r.
func (b *Builder) AddRoot(r Root) {
	b.Conf.Roots[r] = struct{}{}
}

// SequencedWith records that a target mailbox already contained the given
// job id when this job was enqueued into it.
func (b *Builder) SequencedWith(id ID) {
	b.ExistingSequencedJobs = append(b.ExistingSequencedJobs, id)
}
