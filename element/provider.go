package element

import (
	"github.com/arbor-ui/arbor/internal/barrier"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

// BuildContext bundles everything a reconcile pass needs about the lane
// it is running on, replacing a scattered (lane.Pos, widget.ProviderValues)
// parameter list: which lane and batch this build belongs to, the commit
// barrier backqueued async participants release against, and the
// callbacks into the scheduler that owns this lane's dispatch: Cancel and
// Reorder for provider reservation conflicts, Resume for a fired waker.
type BuildContext struct {
	Lane   lane.Pos
	Batch  *job.BatchConf
	Commit barrier.CommitBarrier

	// Cancel aborts another lane outright, e.g. when a sync write
	// invalidates an async writer occupying the same provider (S5).
	Cancel func(lane.Pos)
	// Reorder resolves contention between this build's lane and another
	// one backqueued behind (or ahead of) it on the same provider.
	Reorder func(winner, loser lane.Pos)
	// Resume re-submits a rebuild for ctx once a suspended build's waker
	// fires, e.g. a Suspense boundary's primary child becoming unsuspended.
	Resume func(ctx *tree.Node)
}

// syncBuildContext is the BuildContext Mount and any other purely
// synchronous build uses: no batch, no backqueue callbacks, since nothing
// can be reserved against the sync lane.
func syncBuildContext() BuildContext {
	return BuildContext{Lane: lane.Sync}
}

// resolveValues reads every provider type ctx's element consumes,
// registering ctx as a mainline reader on the sync lane or reserving a
// lane-scoped read for an async one. It returns both the resolved values
// and a release func the caller must invoke once the build finishes
// (unregistering the sync read, or releasing the async reservation).
func resolveValues(ctx *tree.Node, consumed widget.ConsumedTypes, registry *provider.Registry, bc BuildContext) (widget.ProviderValues, func()) {
	if registry == nil || len(consumed) == 0 {
		return widget.ProviderValues{}, func() {}
	}
	values := make(widget.ProviderValues, len(consumed))
	releases := make([]func(), 0, len(consumed))

	for _, t := range consumed {
		obj, ok := registry.Resolve(ctx, t)
		if !ok {
			continue
		}
		if bc.Lane.IsSync() {
			writerLane, contended := obj.RegisterRead(ctx)
			if contended && bc.Cancel != nil {
				bc.Cancel(writerLane)
			}
			releases = append(releases, func() { obj.UnregisterRead(ctx) })
		} else {
			reorder := func() {
				if bc.Reorder == nil {
					return
				}
				if writerLane, ok := obj.OccupyingWriter(); ok {
					bc.Reorder(writerLane, bc.Lane)
				}
			}
			obj.ReserveRead(ctx, bc.Lane, bc.Batch, bc.Commit, reorder)
			releases = append(releases, func() { obj.UnreserveRead(ctx, bc.Lane) })
		}
		values[t] = obj.Value()
	}

	return values, func() {
		for _, release := range releases {
			release()
		}
	}
}

// publishProvidedValue installs or updates the provider object owned by
// ctx, if spec provides one. A first publish calls Registry.Provide; a
// later publish on the sync lane calls WriteSync and forwards any
// Invalidated async lanes to bc.Cancel so a writer this commit raced out
// gets purged and rebatched; a later publish on an async lane reserves and
// immediately commits the write, since this engine walks one lane to
// completion per dispatch rather than splitting reserve and commit across
// separate phases.
func publishProvidedValue(ctx *tree.Node, spec widget.Spec, registry *provider.Registry, bc BuildContext) {
	if registry == nil {
		return
	}
	typeKey, value, ok := spec.ProvidedValue()
	if !ok {
		return
	}

	obj, exists := registry.Lookup(ctx)
	if !exists {
		registry.Provide(ctx, provider.New(value, typeKey))
		return
	}

	if bc.Lane.IsSync() {
		result := obj.WriteSync(value)
		if bc.Cancel != nil {
			for _, p := range result.Invalidated {
				bc.Cancel(p)
			}
		}
		return
	}

	reorder := func() {
		if bc.Reorder == nil {
			return
		}
		if writerLane, ok := obj.OccupyingWriter(); ok {
			bc.Reorder(bc.Lane, writerLane)
		}
	}
	// The mainline readers returned here are discarded: this path marks no
	// consumer for rebuild.
	obj.ReserveWriteAsync(bc.Lane, value, bc.Batch, bc.Commit, reorder)
	obj.CommitAsyncWrite(bc.Lane, bc.Batch.ID)
}
