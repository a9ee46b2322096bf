package widget

import (
	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/tree"
)

// ProviderValues is the read-only snapshot of an element's consumed
// provider values for one build, keyed by type.
type ProviderValues map[tree.TypeKey]any

// Value returns the value provided for t, or nil if t was not among the
// element's ConsumedTypes (or no ancestor provides it).
func (v ProviderValues) Value(t tree.TypeKey) any { return v[t] }

// RenderAction is the propagated effect of a render-object update,
// aliased from the render package so element authors and render authors
// share one vocabulary.
type RenderAction = render.Action

// Spec is the per-element-type contract: everything the reconciliation
// engine needs from a library author's element type, grounded on the
// {ArcWidget, ParentProtocol, ChildProtocol, ChildContainer,
// consumed_types, provided_value, perform_rebuild, perform_inflate,
// create_element, create_render, update_render} tuple. A concrete element
// type's Go value IS its own mutable inner state; the reconciliation
// engine only ever holds it behind a pointer and a node mutex.
type Spec interface {
	// Widget returns the widget this element was most recently built from.
	Widget() Widget

	// ConsumedTypes returns the provider type-keys this element type reads.
	// It must be stable for a given concrete element type.
	ConsumedTypes() ConsumedTypes

	// ProvidedValue returns the value (and its type-key) this element
	// provides to descendants, if any.
	ProvidedValue() (t tree.TypeKey, value any, ok bool)

	// Children returns this element's current child container, mirrored
	// from the widget's own container shape.
	Children() ChildContainer

	// PerformRebuild rebuilds this element against w (which may be the
	// same widget re-delivered, e.g. on a state-only update) using the
	// given consumed provider values and hook cell sequence, reconciling
	// children via r. hooks is this element's own *hook.Sequence: the
	// engine calls hooks.Begin before invoking this method and
	// hooks.End after it returns successfully, so use_state/use_effect/
	// use_memo/use_future/use_transition calls here read and write the
	// same cells across rebuilds. A suspended build returns a non-nil
	// error (normally an element.BuildSuspended); the engine treats any
	// error as a suspension and leaves hooks.End uncalled, so the
	// partially-built hook state is preserved.
	PerformRebuild(w Widget, values ProviderValues, hooks *hook.Sequence, r Reconciler) ([]ReconcileItem, error)

	// PerformInflate runs this element's first build. It is only called
	// once, right after the engine's Factory creates the element.
	PerformInflate(w Widget, values ProviderValues, hooks *hook.Sequence, r Reconciler) ([]ReconcileItem, error)

	// CreateRender reports whether this element is a render element and
	// builds its render-object delegate. The engine calls it on every
	// commit; the delegate is used only when no render object exists yet
	// and is discarded otherwise. Component elements (which forward
	// their single child's render object instead of owning one) return
	// nil, false, false. isBoundary reports whether the new render object
	// is a repaint boundary (owns its own layer cache and is painted and
	// composited independently of its parent).
	CreateRender(w Widget) (delegate any, isRenderElement bool, isBoundary bool)

	// UpdateRender refreshes an existing render-object delegate in place
	// against a new widget, returning the render action it requires (if
	// any).
	UpdateRender(delegate any, w Widget) (RenderAction, bool)
}

// Reconciler is the facet perform_rebuild/perform_inflate use to describe
// how each child slot relates to the element's previous children, without
// needing to know how the engine actually mounts, updates, or unmounts.
type Reconciler interface {
	// ReconcileVector runs the keyed vector diff (see reconcile.go)
	// between old and new and returns the per-slot instructions.
	ReconcileVector(old, new []Widget) []ReconcileItem
}

// defaultReconciler is the Reconciler every element type is handed by the
// engine; it exists as an interface only so tests can substitute a
// recording fake.
type defaultReconciler struct{}

func (defaultReconciler) ReconcileVector(old, new []Widget) []ReconcileItem {
	return ReconcileChildren(old, new)
}

// NewReconciler returns the standard Reconciler implementation.
func NewReconciler() Reconciler { return defaultReconciler{} }
