package render

// HitResult classifies the outcome of testing a single render object
// against a hit-test query, the three-way result hit_test_self produces
// once a position-in-shape check has already passed.
type HitResult int

const (
	// NotHit means the query position is outside this object's shape; the
	// walk does not recurse into its children at all.
	NotHit HitResult = iota
	// Opaque means this object claims the hit and blocks anything behind
	// it in paint order from being considered.
	Opaque
	// Transparent means this object is hit. HitTest reports it exactly
	// like Opaque: earlier-painted siblings are not tested after it.
	Transparent
	// Defer means this object's own hit-test verdict depends entirely on
	// whether any child claimed the hit.
	Defer
)

// HitTestContext carries the query position (in this object's local
// coordinate space, after any ancestor transform has been applied) and
// the accumulator every object along the hit path appends itself to.
type HitTestContext struct {
	Position Offset
	Path     []*Object
}

// WithOffset returns a context with Position translated by -off, for
// entering a child painted at offset off.
func (c *HitTestContext) WithOffset(off Offset) *HitTestContext {
	return &HitTestContext{Position: c.Position.Sub(off), Path: c.Path}
}

// HitTest walks top-down from root: bounds-check via the delegate's
// PositionInShape; on a miss, return false immediately. On a hit, recurse
// into children in reverse paint order (the object painted last, i.e. on
// top, is tested first); if any child claims the hit, the walk stops
// there. Otherwise HitTestSelf classifies this object directly.
func HitTest(root *Object, ctx *HitTestContext) bool {
	ht, ok := root.delegate.(HitTester)
	if !ok {
		return false
	}
	if !ht.PositionInShape(ctx) {
		return false
	}
	ctx.Path = append(ctx.Path, root)

	children := root.Children()
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		off, _ := child.Offset()
		childCtx := ctx.WithOffset(off)
		if HitTest(child, childCtx) {
			ctx.Path = childCtx.Path
			return true
		}
	}

	switch ht.HitTestSelf(ctx) {
	case Opaque, Transparent:
		return true
	default:
		ctx.Path = ctx.Path[:len(ctx.Path)-1]
		return false
	}
}
