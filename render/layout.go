package render

import "sync"

type cache struct {
	mu sync.Mutex

	haveLayout        bool
	lastConstraints   Constraints
	lastParentUseSize bool
	lastSize          Size
	lastMemo          LayoutMemo

	haveOffset bool
	lastOffset Offset

	layer *layerCache
}

// Layout runs this object's layout protocol against constraints,
// consulting and updating the cache. It returns the chosen size and memo.
// If the cached constraints (and parent-use-size flag) are unchanged and
// the object is not marked NeedsLayout, the cached result is returned
// without re-invoking the delegate.
func (o *Object) Layout(constraints Constraints, parentUsesSize bool) (Size, LayoutMemo) {
	o.cache.mu.Lock()
	if o.cache.haveLayout &&
		o.cache.lastConstraints == constraints &&
		o.cache.lastParentUseSize == parentUsesSize &&
		!o.Mark().Has(MarkNeedsLayout) {
		size, memo := o.cache.lastSize, o.cache.lastMemo
		o.cache.mu.Unlock()
		return size, memo
	}
	o.cache.mu.Unlock()

	var size Size
	var memo LayoutMemo
	switch d := o.delegate.(type) {
	case DryLayouter:
		size = d.ComputeDryLayout(constraints)
		memo = d.PerformLayout(constraints, size, o.Children())
	case Layouter:
		size, memo = d.PerformLayout(constraints, o.Children())
	default:
		panic("render: object delegate implements neither Layouter nor DryLayouter")
	}

	o.cache.mu.Lock()
	invalidatePaintLocked := o.cache.haveLayout && (o.cache.lastSize != size)
	o.cache.haveLayout = true
	o.cache.lastConstraints = constraints
	o.cache.lastParentUseSize = parentUsesSize
	o.cache.lastSize = size
	o.cache.lastMemo = memo
	o.cache.mu.Unlock()

	o.ClearMark(MarkNeedsLayout)
	if parentUsesSize {
		o.AddMark(MarkParentUsesSize)
	} else {
		o.ClearMark(MarkParentUsesSize)
	}
	if invalidatePaintLocked {
		o.AddMark(MarkNeedsPaint)
	}
	return size, memo
}

// LastSize returns the size computed by the most recent Layout call.
func (o *Object) LastSize() (Size, bool) {
	o.cache.mu.Lock()
	defer o.cache.mu.Unlock()
	return o.cache.lastSize, o.cache.haveLayout
}

// SetOffset records the offset this object was placed at by its parent.
func (o *Object) SetOffset(off Offset) {
	o.cache.mu.Lock()
	defer o.cache.mu.Unlock()
	o.cache.lastOffset = off
	o.cache.haveOffset = true
}

// Offset returns the offset most recently recorded by SetOffset.
func (o *Object) Offset() (Offset, bool) {
	o.cache.mu.Lock()
	defer o.cache.mu.Unlock()
	return o.cache.lastOffset, o.cache.haveOffset
}
