package element

import (
	"reflect"
	"testing"

	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/provider"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
)

type countValue int

func countType() tree.TypeKey { return reflect.TypeOf(countValue(0)) }

// providerWidget wraps a single consumer child and provides an int value
// the rest of the subtree can read.
type providerWidget struct {
	key   widget.Key
	value int
}

func (w providerWidget) Key() widget.Key { return w.key }

type providerSpec struct{ w providerWidget }

func (s *providerSpec) Widget() widget.Widget         { return s.w }
func (s *providerSpec) ConsumedTypes() widget.ConsumedTypes { return nil }
func (s *providerSpec) ProvidedValue() (tree.TypeKey, any, bool) {
	return countType(), countValue(s.w.value), true
}
func (s *providerSpec) Children() widget.ChildContainer {
	return widget.Children{consumerWidget{key: "consumer"}}
}
func (s *providerSpec) CreateRender(w widget.Widget) (any, bool, bool) { return nil, false, false }
func (s *providerSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	return render.ActionNone, false
}
func (s *providerSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(providerWidget)
	return []widget.ReconcileItem{{Kind: widget.ReconcileInflate, NewWidget: consumerWidget{key: "consumer"}}}, nil
}
func (s *providerSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(providerWidget)
	// Forced Update rather than going through ReconcileChildren's
	// Identical-based prefix pass: this test cares about the consumer
	// actually re-running, not about Keep-skipping mechanics (covered in
	// widget/reconcile_test.go).
	return []widget.ReconcileItem{{Kind: widget.ReconcileUpdate, OldIndex: 0, OldWidget: consumerWidget{key: "consumer"}, NewWidget: consumerWidget{key: "consumer"}}}, nil
}

type consumerWidget struct{ key widget.Key }

func (w consumerWidget) Key() widget.Key { return w.key }

// consumerSpec records the last value it resolved for countType so the test
// can assert the registry actually delivered it.
type consumerSpec struct {
	w        consumerWidget
	observed int
	reads    int
}

func (s *consumerSpec) Widget() widget.Widget { return s.w }
func (s *consumerSpec) ConsumedTypes() widget.ConsumedTypes {
	return widget.ConsumedTypes{countType()}
}
func (s *consumerSpec) ProvidedValue() (tree.TypeKey, any, bool) { return nil, nil, false }
func (s *consumerSpec) Children() widget.ChildContainer          { return nil }
func (s *consumerSpec) CreateRender(w widget.Widget) (any, bool, bool) {
	return "consumer-render", true, false
}
func (s *consumerSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	return render.ActionNone, false
}
func (s *consumerSpec) build(v widget.ProviderValues) ([]widget.ReconcileItem, error) {
	s.reads++
	if cv, ok := v[countType()].(countValue); ok {
		s.observed = int(cv)
	}
	return nil, nil
}
func (s *consumerSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(consumerWidget)
	return s.build(v)
}
func (s *consumerSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	s.w = w.(consumerWidget)
	return s.build(v)
}

var lastConsumer *consumerSpec

func providerTestFactory(w widget.Widget) widget.Spec {
	switch tw := w.(type) {
	case providerWidget:
		return &providerSpec{w: tw}
	case consumerWidget:
		spec := &consumerSpec{w: tw}
		lastConsumer = spec
		return spec
	}
	panic("element/provider_test: unknown widget type")
}

func TestMountDeliversProvidedValueToConsumerChild(t *testing.T) {
	reg := provider.NewRegistry()
	root := providerWidget{key: "p", value: 7}

	n, _, err := Mount(nil, root, providerTestFactory, reg, NewIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lastConsumer == nil {
		t.Fatal("expected a consumer child to be mounted")
	}
	if lastConsumer.observed != 7 {
		t.Fatalf("expected consumer to observe provided value 7, got %d", lastConsumer.observed)
	}

	child := n.Children()[0]
	if _, ok := reg.Lookup(n.Context); !ok {
		t.Fatal("expected the provider to have registered a provider.Object")
	}
	if _, ok := reg.Resolve(child.Context, countType()); !ok {
		t.Fatal("expected the consumer to resolve the ancestor's provided type")
	}
}

func TestRebuildPropagatesUpdatedProvidedValueWithinTheSameCommit(t *testing.T) {
	reg := provider.NewRegistry()
	root := providerWidget{key: "p", value: 1}

	n, _, err := Mount(nil, root, providerTestFactory, reg, NewIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lastConsumer.observed != 1 {
		t.Fatalf("expected initial observed value 1, got %d", lastConsumer.observed)
	}

	updated := providerWidget{key: "p", value: 42}
	if _, err := Rebuild(n, updated, syncBuildContext()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lastConsumer.observed != 42 {
		t.Fatalf("expected the consumer's rebuild to observe the new value 42 in the same commit, got %d", lastConsumer.observed)
	}
	if lastConsumer.reads != 2 {
		t.Fatalf("expected exactly one inflate and one rebuild read, got %d", lastConsumer.reads)
	}
}
