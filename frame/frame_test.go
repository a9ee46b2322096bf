package frame

import (
	"context"
	"image"
	"testing"

	"github.com/arbor-ui/arbor/element"
	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/sched"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
	"github.com/arbor-ui/arbor/workerpool"
)

type rootWidget struct{}

func (rootWidget) Key() widget.Key { return nil }

type rootSpec struct{ w rootWidget }

func (s *rootSpec) Widget() widget.Widget                   { return s.w }
func (s *rootSpec) ConsumedTypes() widget.ConsumedTypes      { return nil }
func (s *rootSpec) ProvidedValue() (tree.TypeKey, any, bool) { return nil, nil, false }
func (s *rootSpec) Children() widget.ChildContainer          { return nil }
func (s *rootSpec) CreateRender(w widget.Widget) (any, bool, bool) {
	return &rootRender{}, true, true
}
func (s *rootSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	return render.ActionNone, false
}
func (s *rootSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	return nil, nil
}
func (s *rootSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	rootRebuilds++
	return nil, nil
}

// rootRebuilds counts rootSpec.PerformRebuild calls across every rootSpec.
var rootRebuilds int

type rootRender struct{}

func (r *rootRender) PerformLayout(c render.Constraints, children []*render.Object) (render.Size, render.LayoutMemo) {
	return c.Max, nil
}

func (r *rootRender) PaintLayer(children []*render.Object) render.PaintResults {
	return render.PaintResults{Encoding: &render.Encoding{}}
}

func (r *rootRender) CompositeTo(enc *render.Encoding, recorded []render.RecordedChildLayer, cfg render.CompositeConfig) {
	enc.Append("root")
}

func testFactory(w widget.Widget) widget.Spec {
	return &rootSpec{w: w.(rootWidget)}
}

func TestTickProducesCompositedEncoding(t *testing.T) {
	index := element.NewIndex()
	n, _, err := element.Mount(nil, rootWidget{}, testFactory, nil, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := New(n, index, job.NewBatcher(), sched.New(workerpool.New(2)))
	results := d.Tick(context.Background(), render.Constraints{Max: image.Pt(800, 600)})

	if results.FrameID != 1 {
		t.Fatalf("expected first frame id 1, got %d", results.FrameID)
	}
	if len(results.Composited.Ops()) != 1 {
		t.Fatalf("expected the root layer to composite exactly one op, got %d", len(results.Composited.Ops()))
	}

	next := d.Tick(context.Background(), render.Constraints{Max: image.Pt(800, 600)})
	if next.FrameID != 2 {
		t.Fatalf("expected frame id to advance, got %d", next.FrameID)
	}
}

func TestDedupRootsDropsDescendantsOfAnIncludedAncestor(t *testing.T) {
	root := tree.NewRoot()
	childA := tree.Mount(root, nil)
	childB := tree.Mount(root, nil)

	got := dedupRoots([]*tree.Node{root, childA})
	if len(got) != 1 || got[0] != root {
		t.Fatalf("expected only the ancestor to survive dedup, got %v", got)
	}

	got = dedupRoots([]*tree.Node{childA, childB})
	if len(got) != 2 {
		t.Fatalf("expected two unrelated roots to both survive dedup, got %d", len(got))
	}
}

func TestWalkRebuildsEveryDistinctRoot(t *testing.T) {
	index := element.NewIndex()
	root, _, err := element.Mount(nil, rootWidget{}, testFactory, nil, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	childWidget := rootWidget{}
	childA, _, err := element.Mount(root.Context, childWidget, testFactory, nil, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	childB, _, err := element.Mount(root.Context, childWidget, testFactory, nil, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := New(root, index, job.NewBatcher(), sched.New(workerpool.New(2)))
	childA.Context.AddMailboxLane(lane.Sync)
	childB.Context.AddMailboxLane(lane.Sync)
	rootRebuilds = 0
	if err := d.walk([]*tree.Node{childA.Context, childB.Context}, lane.Sync, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rootRebuilds != 2 {
		t.Fatalf("expected each of the two roots to rebuild once, got %d rebuilds", rootRebuilds)
	}
}
