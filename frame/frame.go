// Package frame implements the frame driver: the per-tick orchestration of
// job batching, lane dispatch, sync commit, layout, paint, and composite
// that produces one FrameResults. It is grounded on gioverse-chat's
// profile.Profiler-wrapped stage timing (see metrics.FrameMetrics) and the
// same pool-backed fan-out list.Manager uses for loading, generalized to
// drive the whole element/render pipeline instead of one list's rows.
package frame

import (
	"context"

	"github.com/arbor-ui/arbor/element"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/metrics"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/sched"
	"github.com/arbor-ui/arbor/tree"
)

// Results is one frame's output: its sequence number, the composited
// encoding, and the per-stage timings collected along the way.
type Results struct {
	FrameID   uint64
	Composited *render.Encoding
	Metrics   metrics.FrameMetrics
}

// Driver owns one element tree and drives it through successive frames.
type Driver struct {
	root    *element.Node
	index   *element.Index
	batcher *job.Batcher
	sched   *sched.Scheduler
	frameID uint64
}

// New constructs a driver around an already-mounted root element. index
// must be the same *element.Index the tree was mounted with, so the
// driver can resolve an arbitrary lane's batch roots back to the element
// tree rather than only ever walking the overall root.
func New(root *element.Node, index *element.Index, batcher *job.Batcher, scheduler *sched.Scheduler) *Driver {
	return &Driver{root: root, index: index, batcher: batcher, sched: scheduler}
}

// Tick runs one full frame: batch pending jobs, apply them to the lane
// scheduler, dispatch async lanes (non-blocking), run the sync batch
// (blocking), drive layout, paint dirty repaint boundaries, composite, and
// return the resulting encoding plus per-stage metrics.
func (d *Driver) Tick(ctx context.Context, constraints render.Constraints) Results {
	d.frameID++
	var m metrics.FrameMetrics
	var sw metrics.Stopwatch

	sw.Start()
	batchResult := d.batcher.GetBatchUpdates()
	d.sched.ApplyBatchUpdates(batchResult, d.walkAsync)
	if batchResult.NewSyncBatch != nil {
		d.sched.DispatchSync(ctx, d.walkSync)
		d.batcher.RemoveCommittedBatch(batchResult.NewSyncBatch.ID)
	}
	sw.Stop()
	m.SyncBuildTime = sw.Elapsed()
	m.BuildTime = sw.Elapsed()

	var layoutSW metrics.Stopwatch
	layoutSW.Start()
	if ro := d.root.Render(); ro != nil {
		render.DriveLayout(ro, constraints)
	}
	layoutSW.Stop()
	m.LayoutTime = layoutSW.Elapsed()

	// Composite only walks from a repaint-boundary root; a component-only
	// tree with no boundary anywhere produces an empty encoding rather
	// than panicking (see render.Object.Paint's boundary precondition).
	root := d.root.Render()
	hasBoundaryRoot := root != nil && root.IsBoundary()

	var paintSW metrics.Stopwatch
	paintSW.Start()
	if hasBoundaryRoot {
		for _, o := range render.DrivePaint(root) {
			o.Paint()
		}
	}
	paintSW.Stop()
	m.PaintTime = paintSW.Elapsed()

	var compositeSW metrics.Stopwatch
	compositeSW.Start()
	enc := &render.Encoding{}
	if hasBoundaryRoot {
		enc = render.Composite(root, render.CompositeConfig{})
	}
	compositeSW.Stop()
	m.CompositeTime = compositeSW.Elapsed()

	m.FrameTime = m.BuildTime + m.LayoutTime + m.PaintTime + m.CompositeTime

	return Results{FrameID: d.frameID, Composited: enc, Metrics: m}
}

// walkSync and walkAsync adapt sched.Walker to a rebuild pass over every
// distinct root in the lane's batch, resolved back to an element.Node via
// the driver's index. A root that is itself a descendant of another root
// already in the batch is dropped first, so a common ancestor is never
// walked twice (§4.6's "dispatch sync ... starting from the set of roots").
func (d *Driver) walkSync(_ context.Context, roots []*tree.Node, p lane.Pos, batch *job.BatchConf) error {
	return d.walk(roots, p, batch)
}

func (d *Driver) walkAsync(_ context.Context, roots []*tree.Node, p lane.Pos, batch *job.BatchConf) error {
	return d.walk(roots, p, batch)
}

func (d *Driver) walk(roots []*tree.Node, p lane.Pos, batch *job.BatchConf) error {
	bc := d.buildContext(p, batch)

	targets := dedupRoots(roots)
	if len(targets) == 0 {
		targets = []*tree.Node{d.root.Context}
	}

	var firstErr error
	for _, ctx := range targets {
		n, ok := d.index.Lookup(ctx)
		if !ok {
			continue
		}
		if _, err := element.Rebuild(n, nil, bc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dedupRoots drops any root that is a descendant of another root already
// present in the set, so a batch naming both an ancestor and one of its
// descendants walks the ancestor exactly once.
func dedupRoots(roots []*tree.Node) []*tree.Node {
	set := make(map[*tree.Node]bool, len(roots))
	for _, r := range roots {
		set[r] = true
	}
	out := make([]*tree.Node, 0, len(roots))
outer:
	for _, r := range roots {
		for p := r.Parent(); p != nil; p = p.Parent() {
			if set[p] {
				continue outer
			}
		}
		out = append(out, r)
	}
	return out
}

// buildContext assembles the BuildContext for one lane's walk, wiring the
// scheduler's cancellation/reorder primitives and a resume path that
// resubmits a sync job targeting a node whose suspended build just became
// unsuspended.
func (d *Driver) buildContext(p lane.Pos, batch *job.BatchConf) element.BuildContext {
	bc := element.BuildContext{
		Lane:    p,
		Batch:   batch,
		Cancel:  d.sched.Cancel,
		Reorder: d.sched.ReorderAsyncWork,
		Resume:  d.resume,
	}
	if !p.IsSync() {
		if commit, ok := d.sched.CommitBarrier(p); ok {
			bc.Commit = commit
		}
	}
	return bc
}

// resume submits an immediate sync job rooted at ctx, the mechanism a
// Suspense boundary's armed waker uses to ask for a retry once whatever it
// suspended on resolves.
func (d *Driver) resume(ctx *tree.Node) {
	b := job.NewBuilder(job.NewID(d.frameID, 0), job.Immediate, true)
	b.AddRoot(ctx)
	d.batcher.Submit([]*job.Builder{b})
}
