// Package tree implements the per-element tree-context node: the stable,
// reference-counted identity that survives rebuilds and carries the atomic
// lane marks, inherited provider map, and job mailbox.
package tree

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
)

// TypeKey identifies a provided value's type for provider/consumer lookups.
type TypeKey = reflect.Type

// Node is the tree-context node. Its parent/depth/provider-map identity is
// fixed at Mount and never changes afterward; its four lane masks are
// updated with atomics so sync and async reconciler walks can read them
// without taking a lock.
//
// A Node holds a strong reference to its parent so ancestor lookups never
// need a separate registry; this direction is fine because contexts form a
// tree with no cycles. Provider reader sets (owned by the provider package)
// hold ordinary pointers back down to contexts, not weak references.
type Node struct {
	parent *Node
	depth  int

	// providers maps a consumed type to the nearest ancestor (or self) Node
	// that provides it. Immutable after Mount.
	providers map[TypeKey]*Node

	// slot is this node's own provided value holder, if any. It is stored
	// as `any` so this package never imports the provider package, which
	// itself imports tree; importing it here would be an import cycle.
	slot any

	mailboxLanes    atomic.Uint64
	consumerLanes   atomic.Uint64
	descendantLanes atomic.Uint64
	subtreeLanes    atomic.Uint64

	mu      sync.Mutex
	mailbox []job.ID

	unmounted atomic.Bool
}

// NewRoot constructs the tree-context node for the root element, which has
// no parent and an empty inherited provider map.
func NewRoot() *Node {
	return &Node{providers: map[TypeKey]*Node{}}
}

// Mount constructs a child context node under parent, inheriting its
// provider map and overlaying ownProvidedTypes (the types this element
// itself provides to its descendants).
func Mount(parent *Node, ownProvidedTypes []TypeKey) *Node {
	n := &Node{parent: parent, depth: parent.depth + 1}
	n.providers = make(map[TypeKey]*Node, len(parent.providers)+len(ownProvidedTypes))
	for k, v := range parent.providers {
		n.providers[k] = v
	}
	for _, t := range ownProvidedTypes {
		n.providers[t] = n
	}
	return n
}

func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Depth() int    { return n.depth }

// ProviderOf returns the nearest ancestor (or self) Node providing
// TypeKey t, or nil if none does.
func (n *Node) ProviderOf(t TypeKey) *Node { return n.providers[t] }

// SetSlot stores this node's own provided-value holder. Called once by the
// provider package when an element's provided_value is non-nil.
func (n *Node) SetSlot(v any) { n.slot = v }

// Slot returns this node's own provided-value holder, or nil.
func (n *Node) Slot() any { return n.slot }

// MarkUnmounted flags the node as no longer part of the live tree. Weak
// references into the provider graph check this to tolerate unmount races.
func (n *Node) MarkUnmounted() { n.unmounted.Store(true) }

// Unmounted reports whether MarkUnmounted has been called.
func (n *Node) Unmounted() bool { return n.unmounted.Load() }

// --- lane marks -------------------------------------------------------

func (n *Node) MailboxLanes() lane.Mask    { return lane.Mask(n.mailboxLanes.Load()) }
func (n *Node) ConsumerLanes() lane.Mask   { return lane.Mask(n.consumerLanes.Load()) }
func (n *Node) DescendantLanes() lane.Mask { return lane.Mask(n.descendantLanes.Load()) }
func (n *Node) SubtreeLanes() lane.Mask    { return lane.Mask(n.subtreeLanes.Load()) }

// recomputeSubtree recomputes subtree_lanes = mailbox ∪ consumer ∪
// descendant and returns whether the value changed.
func (n *Node) recomputeSubtree() bool {
	next := n.MailboxLanes().Union(n.ConsumerLanes()).Union(n.DescendantLanes())
	prev := lane.Mask(n.subtreeLanes.Swap(uint64(next)))
	return prev != next
}

// propagateUp recomputes self's subtree lanes and, if they grew, ORs them
// into every ancestor's descendant_lanes, stopping as soon as an ancestor
// already contains them, so the bottom-up propagation costs O(1) per node
// in the common case.
func (n *Node) propagateUp() {
	if !n.recomputeSubtree() {
		return
	}
	bits := n.SubtreeLanes()
	for cur := n.parent; cur != nil; cur = cur.parent {
		before := cur.DescendantLanes()
		after := before.Union(bits)
		if after == before {
			// Parent already accounts for these lanes; its own subtree_lanes
			// (and everything above it) is already consistent.
			return
		}
		cur.descendantLanes.Store(uint64(after))
		if !cur.recomputeSubtree() {
			return
		}
	}
}

// AddMailboxLane marks the node itself as having pending mailbox work on
// lane p, propagating the mark up to the root.
func (n *Node) AddMailboxLane(p lane.Pos) {
	n.mailboxLanes.Store(uint64(n.MailboxLanes().With(p)))
	n.propagateUp()
}

// ClearMailboxLane removes lane p from the node's own mailbox mark.
// Ancestor descendant_lanes marks are cleared lazily during commit rather
// than eagerly here — see SetDescendantLanes.
func (n *Node) ClearMailboxLane(p lane.Pos) {
	n.mailboxLanes.Store(uint64(n.MailboxLanes().Without(p)))
	n.recomputeSubtree()
}

// AddConsumerLane marks the node as reading a provider under lane p.
func (n *Node) AddConsumerLane(p lane.Pos) {
	n.consumerLanes.Store(uint64(n.ConsumerLanes().With(p)))
	n.propagateUp()
}

// ClearConsumerLane removes lane p from the node's consumer mark.
func (n *Node) ClearConsumerLane(p lane.Pos) {
	n.consumerLanes.Store(uint64(n.ConsumerLanes().Without(p)))
	n.recomputeSubtree()
}

// SetDescendantLanes overwrites the node's descendant_lanes mark outright.
// The element commit walk calls this once per visited node, bottom-up,
// with the union of its children's current subtree_lanes: a commit walk is
// the only place that can see an accurate picture of which descendants
// still have pending lane work, so stale ancestor marks are cleared here
// rather than eagerly on every lane change.
func (n *Node) SetDescendantLanes(m lane.Mask) {
	n.descendantLanes.Store(uint64(m))
	n.recomputeSubtree()
}

// --- mailbox ------------------------------------------------------------

// MarkRoot appends id to the node's mailbox under lane p and returns the
// job ids already queued there at that moment — the "sequenced with"
// witnesses the batcher uses to union jobs into the same batch.
func (n *Node) MarkRoot(id job.ID, p lane.Pos) []job.ID {
	n.mu.Lock()
	existing := append([]job.ID(nil), n.mailbox...)
	n.mailbox = append(n.mailbox, id)
	n.mu.Unlock()
	n.AddMailboxLane(p)
	return existing
}

// ClearMailboxJob removes id from the node's mailbox, e.g. once its batch
// has committed. It does not by itself clear the node's mailbox lane mark
// if other jobs on the same lane remain queued.
func (n *Node) ClearMailboxJob(id job.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, queued := range n.mailbox {
		if queued == id {
			last := len(n.mailbox) - 1
			n.mailbox[i] = n.mailbox[last]
			n.mailbox = n.mailbox[:last]
			return
		}
	}
}

// Mailbox returns a snapshot of the job ids currently queued on this node.
func (n *Node) Mailbox() []job.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]job.ID(nil), n.mailbox...)
}
