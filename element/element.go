// Package element implements the reconciliation engine: the mutable
// element tree that wraps each tree.Node, the mount/rebuild/unmount state
// machine, and the sync/async reconciler variants that drive a widget.Spec
// through its build against a lane's batch. It is grounded on the same
// "mailbox, mutex, take-modify-insert" discipline gioverse-chat's
// list.Manager uses for its own element bookkeeping, generalized from a
// flat list to an arbitrary tree.
package element

import (
	"sync"

	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

// State is an element's mainline lifecycle state. Exactly one holds at any
// time; the zero value, StateNone, holds only transiently while a
// reconcile owns the node (having taken the prior state out).
type State int

const (
	StateNone State = iota
	StateReady
	StateRebuildSuspended
	StateInflateSuspended
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRebuildSuspended:
		return "RebuildSuspended"
	case StateInflateSuspended:
		return "InflateSuspended"
	default:
		return "None"
	}
}

// Suspension records a pending BuildSuspended condition: the waker (nil
// when the build error carried none) the scheduler registers to know when
// a retry might succeed.
type Suspension struct {
	Waker func(fire func())
}

// Node is one element in the tree: the stable tree.Node identity, the
// current widget.Spec (the library author's element type instance), and
// the mainline state machine. A Node's mutex guards {widget, inner, state}
// and is held only across short critical sections — setup takes the
// mainline state out under the lock, and commit swaps the new state back
// in under the lock; the user's PerformRebuild/PerformInflate runs outside
// it entirely.
type Node struct {
	Context *tree.Node

	mu         sync.Mutex
	state      State
	spec       widget.Spec
	suspension *Suspension

	// hooks is this element's own cell sequence: stable for the node's
	// whole lifetime, Begin/End bracket each PerformRebuild/PerformInflate
	// call so use_state/use_effect/use_memo read and write the same cells
	// across rebuilds (Data Model §3: Ready holds {element, hooks,
	// children, render_object?}).
	hooks *hook.Sequence

	// suspense is non-nil only for a node mounted from a widget.Suspense;
	// it holds the primary/fallback pair and which one is currently live,
	// in place of an ordinary spec.
	suspense *suspenseState

	render   *render.Object
	registry *provider.Registry
	index    *Index
	factory  Factory

	children []*Node
}

// isSuspense reports whether this node is a Suspense boundary rather than
// an ordinary Spec-backed element.
func (n *Node) isSuspense() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.suspense != nil
}

// suspensionWaker returns the waker registered by this node's last
// suspended build, if any.
func (n *Node) suspensionWaker() func(fire func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.suspension == nil {
		return nil
	}
	return n.suspension.Waker
}

// Spec returns the element's current widget.Spec. Callers must hold no
// expectation about this snapshot surviving a concurrent rebuild; it is
// intended for synchronous inspection (tests, debug tooling) only.
func (n *Node) Spec() widget.Spec {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.spec
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Children returns a snapshot of the element's current child nodes.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Node(nil), n.children...)
}

// Render returns the element's render object, or nil if it is a component
// element (forwarding a descendant's render object) or is currently
// detached because its nearest suspense boundary shows fallback instead.
func (n *Node) Render() *render.Object {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.render
}

// take acquires the node's mutex and removes the mainline state, leaving
// StateNone in its place, per the invariant that state is None only while
// a reconcile owns the node. It returns the taken state, spec, and
// suspension (if any) for the reconciler to act on outside the lock.
func (n *Node) take() (State, widget.Spec, *Suspension) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, spec, susp := n.state, n.spec, n.suspension
	n.state = StateNone
	n.suspension = nil
	return s, spec, susp
}

// commit installs the reconcile's outcome as the new mainline state.
func (n *Node) commit(s State, spec widget.Spec, susp *Suspension) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
	n.spec = spec
	n.suspension = susp
}

func (n *Node) setChildren(children []*Node) {
	n.mu.Lock()
	n.children = children
	n.mu.Unlock()
}

func (n *Node) setRender(r *render.Object) {
	n.mu.Lock()
	n.render = r
	n.mu.Unlock()
}

// skip reports whether a rebuild of this node can be skipped outright: the
// delivered widget is nil, or is Identical to the widget the node's spec
// already holds (the round-trip property: rebuilding with the same widget
// pointer, or an equal value, performs no work), and the node has no
// mailbox or consumer mark on lane p, and no descendant has pending work
// on p either.
func skip(n *Node, p lane.Pos, newWidget widget.Widget) bool {
	if newWidget != nil {
		n.mu.Lock()
		spec := n.spec
		n.mu.Unlock()
		if spec == nil || !widget.Identical(spec.Widget(), newWidget) {
			return false
		}
	}
	mask := n.Context.SubtreeLanes()
	return !mask.Has(p)
}
