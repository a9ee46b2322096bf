package element

import (
	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

// BuildSuspended is returned by PerformRebuild/PerformInflate when a build
// read an unresolved use_future. It carries the waker the scheduler
// registers to know when a retry might succeed.
type BuildSuspended struct {
	Waker func(fire func())
}

func (BuildSuspended) Error() string { return "element: build suspended" }

// CommitResult is a reconcile's per-node outcome, reported up to its
// parent's commit step.
type CommitResult struct {
	// Render is set when this element (or, for a component element, its
	// forwarded descendant) produced or kept a render object.
	Render *render.Object
	// Action is the propagated render action: the max of this element's
	// own action and its children's.
	Action render.Action
	// Suspended is true when this subtree is currently suspended (its
	// render object, if any, has been detached).
	Suspended bool
}

// Factory supplies the engine with a widget.Spec for a freshly inflated
// widget, the only hook point that needs to know about concrete element
// types (typically a small type-switch library authors register).
type Factory func(w widget.Widget) widget.Spec

// Mount inflates a brand new element for w under parent (nil for the
// root), running its first build synchronously. index, if non-nil,
// records every mounted node so a frame driver can later resolve an
// arbitrary lane's batch roots back to the element tree.
func Mount(parent *tree.Node, w widget.Widget, create Factory, registry *provider.Registry, index *Index) (*Node, CommitResult, error) {
	if suspense, ok := w.(widget.Suspense); ok {
		return mountSuspense(parent, suspense, create, registry, index)
	}

	spec := create(w)
	var ctx *tree.Node
	if parent == nil {
		ctx = tree.NewRoot()
	} else {
		ctx = tree.Mount(parent, providedTypesOf(spec))
	}
	n := &Node{Context: ctx, registry: registry, index: index, factory: create, hooks: &hook.Sequence{}}
	index.put(ctx, n)

	result, err := inflate(n, spec, w, syncBuildContext())
	return n, result, err
}

// mountChild mounts a freshly inflated child under parent, threading bc
// through so any reservations the child's own build needs run on the same
// lane as its parent's rebuild.
func mountChild(parent *Node, w widget.Widget, bc BuildContext) (*Node, CommitResult, error) {
	if suspense, ok := w.(widget.Suspense); ok {
		return mountSuspense(parent.Context, suspense, parent.factory, parent.registry, parent.index)
	}

	spec := parent.factory(w)
	ctx := tree.Mount(parent.Context, providedTypesOf(spec))
	n := &Node{Context: ctx, registry: parent.registry, index: parent.index, factory: parent.factory, hooks: &hook.Sequence{}}
	parent.index.put(ctx, n)

	result, err := inflate(n, spec, w, bc)
	return n, result, err
}

func providedTypesOf(spec widget.Spec) []tree.TypeKey {
	t, _, ok := spec.ProvidedValue()
	if !ok {
		return nil
	}
	return []tree.TypeKey{t}
}

func inflate(n *Node, spec widget.Spec, w widget.Widget, bc BuildContext) (CommitResult, error) {
	values, release := resolveValues(n.Context, spec.ConsumedTypes(), n.registry, bc)
	defer release()

	recon := widget.NewReconciler()
	n.hooks.Begin()
	items, err := spec.PerformInflate(w, values, n.hooks, recon)
	if err != nil {
		n.commit(StateInflateSuspended, spec, suspensionFrom(err))
		return CommitResult{Suspended: true}, err
	}
	n.hooks.End()
	return commitReconcile(n, spec, w, bc, items)
}

// Rebuild runs one reconcile pass against n: the node may be re-delivered
// the same widget (a state-only update) or a new one of the same factory.
// newWidget may be nil, meaning "no new widget, only internal state/mark
// driven work".
func Rebuild(n *Node, newWidget widget.Widget, bc BuildContext) (CommitResult, error) {
	if n.isSuspense() {
		return rebuildSuspense(n, newWidget, bc)
	}

	if skip(n, bc.Lane, newWidget) {
		return CommitResult{Render: n.Render(), Action: render.ActionNone}, nil
	}

	state, spec, _ := n.take()
	if state == StateNone {
		panic("element: Rebuild called while the node was already being reconciled")
	}

	w := newWidget
	if w == nil {
		w = spec.Widget()
	}

	values, release := resolveValues(n.Context, spec.ConsumedTypes(), n.registry, bc)
	defer release()

	recon := widget.NewReconciler()
	n.hooks.Begin()
	items, err := spec.PerformRebuild(w, values, n.hooks, recon)
	if err != nil {
		n.commit(StateRebuildSuspended, spec, suspensionFrom(err))
		return CommitResult{Suspended: true, Render: n.Render()}, err
	}
	n.hooks.End()
	return commitReconcile(n, spec, w, bc, items)
}

func suspensionFrom(err error) *Suspension {
	if bs, ok := err.(BuildSuspended); ok {
		return &Suspension{Waker: bs.Waker}
	}
	return &Suspension{}
}

// commitReconcile executes the reconcile items produced by a build: for
// each child slot either keep the old element, recurse a rebuild, inflate
// a new element, or unmount an old one. It then aggregates child commit
// results into this element's own, creating or updating its render object
// if it is a render element, or forwarding its single child's render
// object if it is a component element. A successful commit also publishes
// this element's provided value (if any) to the registry.
func commitReconcile(n *Node, spec widget.Spec, w widget.Widget, bc BuildContext, items []widget.ReconcileItem) (CommitResult, error) {
	oldChildren := n.Children()
	newChildren := make([]*Node, 0, len(items))
	var childResults []CommitResult
	var descendantLanes lane.Mask

	// Publish before reconciling children: a provided value must be visible
	// to this same commit's consumer children, not just the next frame's.
	publishProvidedValue(n.Context, spec, n.registry, bc)

	for _, item := range items {
		switch item.Kind {
		case widget.ReconcileKeep:
			idx := item.OldIndex
			child := oldChildren[idx]
			newChildren = append(newChildren, child)
			childResults = append(childResults, CommitResult{Render: child.Render(), Action: render.ActionNone})
			descendantLanes = descendantLanes.Union(child.Context.SubtreeLanes())

		case widget.ReconcileUpdate:
			child := oldChildren[item.OldIndex]
			res, _ := Rebuild(child, item.NewWidget, bc)
			newChildren = append(newChildren, child)
			childResults = append(childResults, res)
			descendantLanes = descendantLanes.Union(child.Context.SubtreeLanes())

		case widget.ReconcileInflate:
			child, res, _ := mountChild(n, item.NewWidget, bc)
			newChildren = append(newChildren, child)
			childResults = append(childResults, res)
			descendantLanes = descendantLanes.Union(child.Context.SubtreeLanes())

		case widget.ReconcileUnmount:
			child := oldChildren[item.OldIndex]
			unmount(child)
		}
	}

	n.setChildren(newChildren)
	n.Context.SetDescendantLanes(descendantLanes)

	action := render.ActionNone
	var childRender *render.Object
	for _, cr := range childResults {
		action = render.Max(action, cr.Action)
		if cr.Render != nil {
			childRender = cr.Render
		}
	}

	delegate, isRenderElement, isBoundary := spec.CreateRender(w)
	var result CommitResult
	if isRenderElement {
		existing := n.Render()
		if existing == nil {
			ro := render.New(delegate, n.Context, isBoundary)
			kids := make([]*render.Object, 0, len(newChildren))
			for _, c := range newChildren {
				if c.Render() != nil {
					kids = append(kids, c.Render())
				}
			}
			ro.SetChildren(kids)
			n.setRender(ro)
			result = CommitResult{Render: ro, Action: render.ActionRelayout}
		} else {
			updateAction, changed := spec.UpdateRender(existing, w)
			if changed {
				existing.AddMark(render.MarkNeedsLayout)
			}
			kids := make([]*render.Object, 0, len(newChildren))
			for _, c := range newChildren {
				if c.Render() != nil {
					kids = append(kids, c.Render())
				}
			}
			existing.SetChildren(kids)
			result = CommitResult{Render: existing, Action: render.Max(action, updateAction)}
		}
	} else {
		result = CommitResult{Render: childRender, Action: action}
	}

	n.commit(StateReady, spec, nil)
	return result, nil
}

// unmount tears down child and every descendant, detaching render objects
// and marking each tree.Node unmounted.
func unmount(n *Node) {
	if st := n.suspenseSnapshot(); st != nil {
		if st.primary != nil {
			unmount(st.primary)
		}
		if st.fallback != nil {
			unmount(st.fallback)
		}
		n.Context.MarkUnmounted()
		if n.registry != nil {
			n.registry.Remove(n.Context)
		}
		n.index.remove(n.Context)
		return
	}

	for _, c := range n.Children() {
		unmount(c)
	}
	n.Context.MarkUnmounted()
	if n.registry != nil {
		n.registry.Remove(n.Context)
	}
	n.index.remove(n.Context)
	n.setRender(nil)
}
