package tree

import (
	"reflect"
	"testing"

	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
)

func TestSubtreeLanesPropagateToAncestors(t *testing.T) {
	root := NewRoot()
	mid := Mount(root, nil)
	leaf := Mount(mid, nil)

	leaf.AddMailboxLane(lane.Async(0))

	if !leaf.SubtreeLanes().Has(lane.Async(0)) {
		t.Fatal("leaf should contain its own mailbox lane in subtree lanes")
	}
	if !mid.DescendantLanes().Has(lane.Async(0)) {
		t.Fatal("mid should observe leaf's lane as a descendant lane")
	}
	if !mid.SubtreeLanes().Has(lane.Async(0)) {
		t.Fatal("mid's subtree lanes should include descendant lane")
	}
	if !root.SubtreeLanes().Has(lane.Async(0)) {
		t.Fatal("root's subtree lanes should include the leaf's lane transitively")
	}
}

func TestProviderMapInheritsAndOverlays(t *testing.T) {
	type aspectA struct{}
	type aspectB struct{}
	keyA := reflect.TypeOf(aspectA{})
	keyB := reflect.TypeOf(aspectB{})

	root := NewRoot()
	providerNode := Mount(root, []TypeKey{keyA})
	consumer := Mount(providerNode, nil)

	if got := consumer.ProviderOf(keyA); got != providerNode {
		t.Fatalf("expected consumer to resolve keyA to providerNode, got %v", got)
	}
	if got := consumer.ProviderOf(keyB); got != nil {
		t.Fatalf("expected no provider for keyB, got %v", got)
	}
}

func TestMarkRootReturnsExistingSequencedJobs(t *testing.T) {
	n := Mount(NewRoot(), nil)
	idA := job.NewID(1, 0)
	idB := job.NewID(1, 1)

	existing := n.MarkRoot(idA, lane.Sync)
	if len(existing) != 0 {
		t.Fatalf("expected no existing jobs on first mark, got %d", len(existing))
	}
	existing = n.MarkRoot(idB, lane.Sync)
	if len(existing) != 1 || existing[0] != idA {
		t.Fatalf("expected idA as the pre-existing mailbox entry, got %v", existing)
	}
}

func TestClearMailboxLaneDoesNotTouchAncestors(t *testing.T) {
	root := NewRoot()
	leaf := Mount(root, nil)
	leaf.AddMailboxLane(lane.Async(1))
	leaf.ClearMailboxLane(lane.Async(1))

	if leaf.SubtreeLanes().Has(lane.Async(1)) {
		t.Fatal("leaf subtree lanes should drop the cleared lane")
	}
	if !root.DescendantLanes().Has(lane.Async(1)) {
		t.Fatal("ancestor descendant lane should remain until the commit walk clears it lazily")
	}
	root.SetDescendantLanes(lane.None)
	if root.SubtreeLanes().Has(lane.Async(1)) {
		t.Fatal("explicit SetDescendantLanes should clear the stale ancestor mark")
	}
}
