package render

import (
	"sync"
	"sync/atomic"

	"github.com/arbor-ui/arbor/tree"
)

// Mark is the atomic per-object dirty-state bitset.
type Mark uint32

const (
	MarkNeedsLayout Mark = 1 << iota
	MarkNeedsPaint
	MarkDescendantNeedsLayout
	MarkDescendantNeedsPaint
	MarkParentUsesSize
	MarkDetached
)

func (m Mark) Has(bit Mark) bool { return m&bit != 0 }

// Layouter is the simple layout protocol: compute size and memo directly
// from constraints and already-laid-out children.
type Layouter interface {
	PerformLayout(constraints Constraints, children []*Object) (Size, LayoutMemo)
}

// DryLayouter is the two-phase layout protocol for a render object that is
// sized by its parent: ComputeDryLayout is cache-key'd by constraints
// alone (so repeated dry layouts with the same constraints can be
// skipped), and PerformLayout consumes the externally-decided size.
type DryLayouter interface {
	ComputeDryLayout(constraints Constraints) Size
	PerformLayout(constraints Constraints, size Size, children []*Object) LayoutMemo
}

// Painter is the inline (non-boundary) paint protocol: paint directly into
// the ambient context of the nearest repaint-boundary ancestor.
type Painter interface {
	PerformPaint(size Size, offset Offset, memo LayoutMemo, children []*Object, ctx *PaintContext)
}

// LayerPainter is the repaint-boundary paint protocol: produce a
// self-contained PaintResults independent of any ancestor's paint pass.
type LayerPainter interface {
	PaintLayer(children []*Object) PaintResults
}

// Compositor composites a non-cached layer's paint results directly into
// the parent's encoding.
type Compositor interface {
	CompositeTo(enc *Encoding, recorded []RecordedChildLayer, cfg CompositeConfig)
}

// CachedCompositor composites a layer that opts into composition memoing:
// the memo is computed once and reused across frames where the layer's
// subtree didn't change.
type CachedCompositor interface {
	CompositeIntoMemo(recorded []RecordedChildLayer, cfg CompositeConfig) Memo
	CompositeFromCacheTo(enc *Encoding, memo Memo)
}

// HitTester is a render object's hit-testing delegate.
type HitTester interface {
	PositionInShape(ctx *HitTestContext) bool
	HitTestSelf(ctx *HitTestContext) HitResult
}

// Object is a render-object tree node: it owns its children in the same
// container shape as its element's children, a layout/paint cache, and
// (if it is a repaint boundary) a layer cache.
type Object struct {
	mu sync.Mutex

	delegate   any // implements some subset of Layouter/DryLayouter/Painter/LayerPainter/(Cached)Compositor/HitTester
	context    *tree.Node
	children   []*Object
	isBoundary bool // repaint boundary, i.e. LayerPaint

	mark      atomic.Uint32
	layerMark atomic.Uint32

	cache cache
}

// New constructs a render object for delegate, owned by context, with no
// children yet (the reconciler attaches them as it commits).
func New(delegate any, context *tree.Node, isBoundary bool) *Object {
	o := &Object{delegate: delegate, context: context, isBoundary: isBoundary}
	o.mark.Store(uint32(MarkNeedsLayout | MarkNeedsPaint))
	return o
}

func (o *Object) Context() *tree.Node { return o.context }
func (o *Object) IsBoundary() bool    { return o.isBoundary }

// Children returns the object's current child render objects, in the
// shape-container order its element's children project to.
func (o *Object) Children() []*Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Object(nil), o.children...)
}

// SetChildren replaces the object's child render objects, called by the
// element reconciler's commit after child reconciliation.
func (o *Object) SetChildren(children []*Object) {
	o.mu.Lock()
	o.children = children
	o.mu.Unlock()
}

func (o *Object) Mark() Mark        { return Mark(o.mark.Load()) }
func (o *Object) AddMark(bit Mark)  { atomicOr(&o.mark, uint32(bit)) }
func (o *Object) ClearMark(bit Mark) {
	for {
		old := o.mark.Load()
		next := old &^ uint32(bit)
		if o.mark.CompareAndSwap(old, next) {
			return
		}
	}
}

func atomicOr(a *atomic.Uint32, bit uint32) {
	for {
		old := a.Load()
		next := old | bit
		if old == next || a.CompareAndSwap(old, next) {
			return
		}
	}
}

// IsRelayoutBoundary reports whether layout dirtiness must stop
// propagating upward at this object: either it is sized by its parent
// (dry layout) or its last layout was driven by constraints the parent
// never consumed the resulting size of.
func (o *Object) IsRelayoutBoundary() bool {
	_, dry := o.delegate.(DryLayouter)
	return dry || !o.Mark().Has(MarkParentUsesSize)
}
