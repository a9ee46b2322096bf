// Command counterdemo embeds the reconciliation core to drive a single
// counter element through a handful of sync frames, printing the
// composited op count and frame metrics after each tick. It exercises the
// "Counter" scenario end to end: a stateful leaf widget, a sync job that
// bumps its count, and a frame driver that rebuilds, lays out, paints, and
// composites it.
package main

import (
	"context"
	"fmt"
	"image"

	"github.com/arbor-ui/arbor/element"
	"github.com/arbor-ui/arbor/frame"
	"github.com/arbor-ui/arbor/hook"
	"github.com/arbor-ui/arbor/internal/xlog"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/render"
	"github.com/arbor-ui/arbor/sched"
	"github.com/arbor-ui/arbor/tree"
	"github.com/arbor-ui/arbor/widget"
	"github.com/arbor-ui/arbor/workerpool"
)

type counterWidget struct{}

func (counterWidget) Key() widget.Key { return nil }

type counterRender struct{ count int }

func (r *counterRender) PerformLayout(c render.Constraints, children []*render.Object) (render.Size, render.LayoutMemo) {
	return image.Pt(120, 40), nil
}

func (r *counterRender) PaintLayer(children []*render.Object) render.PaintResults {
	return render.PaintResults{Encoding: &render.Encoding{}}
}

func (r *counterRender) CompositeTo(enc *render.Encoding, recorded []render.RecordedChildLayer, cfg render.CompositeConfig) {
	enc.Append(fmt.Sprintf("count=%d", r.count))
}

// counterSpec holds no count of its own: the count lives in its hook
// cell, the way a real element's state does, with rendered caching the
// hook-read value from the most recent build for CreateRender/UpdateRender
// to consume (neither is handed the hook sequence, since only a build
// itself reads or writes cells).
type counterSpec struct {
	increment bool
	rendered  int
}

func (s *counterSpec) Widget() widget.Widget                   { return counterWidget{} }
func (s *counterSpec) ConsumedTypes() widget.ConsumedTypes      { return nil }
func (s *counterSpec) ProvidedValue() (tree.TypeKey, any, bool) { return nil, nil, false }
func (s *counterSpec) Children() widget.ChildContainer          { return nil }

func (s *counterSpec) CreateRender(w widget.Widget) (any, bool, bool) {
	return &counterRender{count: s.rendered}, true, true
}

func (s *counterSpec) UpdateRender(d any, w widget.Widget) (render.Action, bool) {
	r := d.(*counterRender)
	if r.count == s.rendered {
		return render.ActionNone, false
	}
	r.count = s.rendered
	return render.ActionRepaint, true
}

func (s *counterSpec) build(h *hook.Sequence) ([]widget.ReconcileItem, error) {
	count, setCount := hook.UseState(h, 0)
	if s.increment {
		count++
		setCount(count, nil)
		s.increment = false
	}
	s.rendered = count
	return nil, nil
}

func (s *counterSpec) PerformInflate(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	return s.build(h)
}

func (s *counterSpec) PerformRebuild(w widget.Widget, v widget.ProviderValues, h *hook.Sequence, r widget.Reconciler) ([]widget.ReconcileItem, error) {
	return s.build(h)
}

func main() {
	log := xlog.Logger()

	spec := &counterSpec{}
	index := element.NewIndex()
	root, _, err := element.Mount(nil, counterWidget{}, func(widget.Widget) widget.Spec { return spec }, nil, index)
	if err != nil {
		log.Fatal().Err(err).Msg("initial mount failed")
	}

	batcher := job.NewBatcher()
	scheduler := sched.New(workerpool.New(4))
	driver := frame.New(root, index, batcher, scheduler)

	constraints := render.Constraints{Max: image.Pt(800, 600)}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		spec.increment = true

		builder := job.NewBuilder(job.NewID(uint64(i+1), 0), job.Immediate, true)
		builder.AddRoot(root.Context)
		batcher.Submit([]*job.Builder{builder})

		results := driver.Tick(ctx, constraints)
		log.Info().
			Uint64("frame", results.FrameID).
			Int("ops", len(results.Composited.Ops())).
			Dur("frame_time", results.Metrics.FrameTime).
			Msg("tick")
	}
}
