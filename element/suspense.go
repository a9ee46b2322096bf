package element

import (
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

// suspenseState is a Suspense boundary's own state: which of Primary or
// Fallback is currently mounted as the node's sole child. It lives on the
// boundary's Node in place of a widget.Spec, since the primary/fallback
// swap decision can only be made after observing whether a Primary build
// suspended — information a generic Spec.PerformRebuild cannot expose.
type suspenseState struct {
	widget          widget.Suspense
	primary         *Node
	fallback        *Node
	showingFallback bool
}

// suspenseSnapshot returns the node's suspense state, or nil if it is not
// a Suspense boundary. Like take/commit for an ordinary spec, callers rely
// on only one reconcile owning a given lane's walk over this node at a
// time.
func (n *Node) suspenseSnapshot() *suspenseState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.suspense
}

// armWaker wires a suspended primary build's waker to re-enter this
// boundary's rebuild once the thing it suspended on resolves.
func armWaker(n *Node, waker func(fire func()), bc BuildContext) {
	if waker == nil || bc.Resume == nil {
		return
	}
	waker(func() {
		bc.Resume(n.Context)
	})
}

// mountSuspense inflates a Suspense boundary: it attempts Primary first,
// falling back to Fallback if Primary's first build suspends. Mount builds
// without a Resume callback, so no waker is armed here; only a later
// rebuild whose BuildContext carries Resume arms it.
func mountSuspense(parent *tree.Node, w widget.Suspense, create Factory, registry *provider.Registry, index *Index) (*Node, CommitResult, error) {
	var ctx *tree.Node
	if parent == nil {
		ctx = tree.NewRoot()
	} else {
		ctx = tree.Mount(parent, nil)
	}
	n := &Node{Context: ctx, registry: registry, index: index, factory: create}
	st := &suspenseState{widget: w}
	n.suspense = st
	index.put(ctx, n)

	bc := syncBuildContext()
	primary, res, err := mountChild(n, w.Primary, bc)
	st.primary = primary
	if err == nil {
		n.setChildren([]*Node{primary})
		n.setRender(primary.Render())
		return n, res, nil
	}
	if _, ok := err.(BuildSuspended); !ok {
		return n, res, err
	}

	armWaker(n, primary.suspensionWaker(), bc)
	fallback, fres, ferr := mountChild(n, w.Fallback, bc)
	st.fallback = fallback
	st.showingFallback = true
	n.setChildren([]*Node{fallback})
	n.setRender(fallback.Render())
	fres.Suspended = true
	return n, fres, ferr
}

// rebuildSuspense runs one reconcile pass against a Suspense boundary: if
// currently showing Fallback, it retries Primary first and swaps back on
// success; otherwise it rebuilds the live Primary and swaps to Fallback if
// that rebuild suspends.
func rebuildSuspense(n *Node, newWidget widget.Widget, bc BuildContext) (CommitResult, error) {
	st := n.suspenseSnapshot()
	w := st.widget
	if sw, ok := newWidget.(widget.Suspense); ok {
		w = sw
		st.widget = sw
	}

	if st.showingFallback {
		res, err := Rebuild(st.primary, w.Primary, bc)
		if err == nil {
			unmount(st.fallback)
			st.fallback = nil
			st.showingFallback = false
			n.setChildren([]*Node{st.primary})
			n.setRender(st.primary.Render())
			return res, nil
		}
		if _, ok := err.(BuildSuspended); !ok {
			return res, err
		}
		armWaker(n, st.primary.suspensionWaker(), bc)
		fres, ferr := Rebuild(st.fallback, w.Fallback, bc)
		n.setRender(st.fallback.Render())
		fres.Suspended = true
		return fres, ferr
	}

	res, err := Rebuild(st.primary, w.Primary, bc)
	if err == nil {
		n.setRender(st.primary.Render())
		return res, nil
	}
	if _, ok := err.(BuildSuspended); !ok {
		return res, err
	}

	armWaker(n, st.primary.suspensionWaker(), bc)
	var fres CommitResult
	var ferr error
	if st.fallback == nil {
		st.fallback, fres, ferr = mountChild(n, w.Fallback, bc)
	} else {
		fres, ferr = Rebuild(st.fallback, w.Fallback, bc)
	}
	st.showingFallback = true
	n.setChildren([]*Node{st.fallback})
	n.setRender(st.fallback.Render())
	fres.Suspended = true
	return fres, ferr
}
