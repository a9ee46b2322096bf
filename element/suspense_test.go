package element

import (
	"testing"

	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

type suspendingWidget struct {
	key     widget.Key
	suspend bool
	gen     int
}

func (w suspendingWidget) Key() widget.Key { return w.key }

type fallbackWidget struct{ key widget.Key }

func (w fallbackWidget) Key() widget.Key { return w.key }

type suspendingSpec struct {
	w     suspendingWidget
	armed func()
}

func (s *suspendingSpec) Widget() widget.Widget                     { return s.w }
func (s *suspendingSpec) ConsumedTypes() widget.ConsumedTypes       { return nil }
func (s *suspendingSpec) ProvidedValue() (tree.TypeKey, any, bool)  { return nil, nil, false }
func (s *suspendingSpec) Children() widget.ChildContainer           { return nil }
func (s *suspendingSpec) CreateRender(w widget.Widget) (any, bool, bool) {
	return "suspending-render", true, false
}
func (s *suspendingSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	return render.ActionRecomposite, true
}
func (s *suspendingSpec) build(w widget.Widget) ([]widget.ReconcileItem, error) {
	sw := w.(suspendingWidget)
	s.w = sw
	if sw.suspend {
		return nil, BuildSuspended{Waker: func(fire func()) { s.armed = fire }}
	}
	return nil, nil
}
func (s *suspendingSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	return s.build(w)
}
func (s *suspendingSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	return s.build(w)
}

type fallbackSpec struct{ w fallbackWidget }

func (s *fallbackSpec) Widget() widget.Widget                    { return s.w }
func (s *fallbackSpec) ConsumedTypes() widget.ConsumedTypes      { return nil }
func (s *fallbackSpec) ProvidedValue() (tree.TypeKey, any, bool) { return nil, nil, false }
func (s *fallbackSpec) Children() widget.ChildContainer          { return nil }
func (s *fallbackSpec) CreateRender(w widget.Widget) (any, bool, bool) {
	return "fallback-render", true, false
}
func (s *fallbackSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	return render.ActionNone, false
}
func (s *fallbackSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(fallbackWidget)
	return nil, nil
}
func (s *fallbackSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(fallbackWidget)
	return nil, nil
}

func suspenseFactory(w widget.Widget) widget.Spec {
	switch tw := w.(type) {
	case suspendingWidget:
		return &suspendingSpec{w: tw}
	case fallbackWidget:
		return &fallbackSpec{w: tw}
	}
	panic("suspense_test: unknown widget type")
}

func TestSuspenseShowsFallbackWhenPrimarySuspends(t *testing.T) {
	reg := provider.NewRegistry()
	w := widget.Suspense{
		SuspenseKey: "boundary",
		Primary:     suspendingWidget{key: "p", suspend: true},
		Fallback:    fallbackWidget{key: "f"},
	}

	n, result, err := Mount(nil, w, suspenseFactory, reg, NewIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Suspended {
		t.Fatal("expected the boundary's mount result to report Suspended")
	}
	if result.Render == nil {
		t.Fatal("expected the fallback's render object to be live")
	}

	st := n.suspenseSnapshot()
	if !st.showingFallback {
		t.Fatal("expected the boundary to be showing fallback")
	}
	if st.primary.suspensionWaker() == nil {
		t.Fatal("expected the primary's waker to be recorded")
	}
}

func TestSuspenseSwapsBackToPrimaryOnceUnsuspended(t *testing.T) {
	reg := provider.NewRegistry()
	w := widget.Suspense{
		SuspenseKey: "boundary",
		Primary:     suspendingWidget{key: "p", suspend: true},
		Fallback:    fallbackWidget{key: "f"},
	}

	n, mountResult, err := Mount(nil, w, suspenseFactory, reg, NewIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mountResult.Suspended {
		t.Fatal("expected the boundary's mount result to report Suspended")
	}

	resumed := widget.Suspense{
		SuspenseKey: "boundary",
		Primary:     suspendingWidget{key: "p", suspend: false},
		Fallback:    fallbackWidget{key: "f"},
	}
	result, err := Rebuild(n, resumed, syncBuildContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := n.suspenseSnapshot()
	if st.showingFallback {
		t.Fatal("expected the boundary to swap back to primary")
	}
	if result.Render == nil {
		t.Fatal("expected the primary's render object to be live again")
	}
}

func TestSuspenseArmedWakerResumesBoundary(t *testing.T) {
	reg := provider.NewRegistry()
	w := widget.Suspense{
		SuspenseKey: "boundary",
		Primary:     suspendingWidget{key: "p", suspend: true},
		Fallback:    fallbackWidget{key: "f"},
	}

	var resumed *tree.Node
	bc := BuildContext{Resume: func(ctx *tree.Node) { resumed = ctx }}

	n, mountResult, err := Mount(nil, w, suspenseFactory, reg, NewIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mountResult.Suspended {
		t.Fatal("expected the boundary's mount result to report Suspended")
	}

	// Mount always runs the sync, driver-free BuildContext (no Resume
	// wired, since nothing could retry it yet); a frame driver's rebuild
	// is what carries a real Resume, so arming the waker is exercised on
	// the next rebuild instead of at mount time.
	again := widget.Suspense{
		SuspenseKey: "boundary",
		Primary:     suspendingWidget{key: "p", suspend: true, gen: 1},
		Fallback:    fallbackWidget{key: "f"},
	}
	rebuildResult, rerr := Rebuild(n, again, bc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if !rebuildResult.Suspended {
		t.Fatal("expected the boundary to still report Suspended")
	}

	st := n.suspenseSnapshot()
	primarySpec := st.primary.Spec().(*suspendingSpec)
	if primarySpec.armed == nil {
		t.Fatal("expected the suspended rebuild to have armed its waker")
	}
	primarySpec.armed()
	if resumed != n.Context {
		t.Fatal("expected the waker to resume the suspense boundary's own context")
	}
}
