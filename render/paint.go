package render

// PaintContext is the ambient paint context a non-boundary render object's
// PerformPaint draws into; it is owned by the nearest repaint-boundary
// ancestor's paint pass.
type PaintContext struct {
	Encoding *Encoding
}

// RecordedChildLayer places one child layer's paint results at a
// transform relative to its parent layer, recorded during the parent
// layer's paint pass for later compositing.
type RecordedChildLayer struct {
	Offset Offset
	Child  *Object
}

// PaintResults is a repaint boundary's own paint output: its own drawing
// fragment plus the list of child layers it painted (in front-to-back
// paint order).
type PaintResults struct {
	Encoding *Encoding
	Children []RecordedChildLayer
}

type layerCache struct {
	results   *PaintResults
	memo      Memo
	haveMemo  bool
	cacheable bool
}

// Paint repaints o (which must be a repaint boundary) if it is marked
// NeedsPaint, reusing the cached PaintResults otherwise. Non-boundary
// descendants are painted inline by the delegate's own PerformPaint, which
// recurses into its children from within this call.
func (o *Object) Paint() *PaintResults {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isBoundary {
		panic("render: Paint called on a non-boundary render object")
	}
	if o.cache.layer != nil && o.cache.layer.results != nil && !o.Mark().Has(MarkNeedsPaint) {
		return o.cache.layer.results
	}
	lp, ok := o.delegate.(LayerPainter)
	if !ok {
		panic("render: boundary render object delegate does not implement LayerPainter")
	}
	results := lp.PaintLayer(o.children)
	if o.cache.layer == nil {
		o.cache.layer = &layerCache{}
	}
	o.cache.layer.results = &results
	o.cache.layer.haveMemo = false
	o.ClearMark(MarkNeedsPaint)
	return &results
}

// DrivePaint collects every repaint boundary in the subtree rooted at root
// that is marked NeedsPaint (directly or via a dirty descendant boundary),
// skipping clean layers entirely. It does not paint them: callers call
// Paint on each returned boundary. Boundaries are independent of one
// another, so callers may fan this out across a worker pool per boundary.
func DrivePaint(root *Object) []*Object {
	var dirty []*Object
	var walk func(o *Object)
	walk = func(o *Object) {
		if o.isBoundary {
			if o.Mark().Has(MarkNeedsPaint) {
				dirty = append(dirty, o)
			}
		}
		if !o.Mark().Has(MarkDescendantNeedsPaint) && !(o.isBoundary && o.Mark().Has(MarkNeedsPaint)) {
			return
		}
		for _, c := range o.Children() {
			walk(c)
		}
		o.ClearMark(MarkDescendantNeedsPaint)
	}
	walk(root)
	return dirty
}
