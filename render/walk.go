package render

// DriveLayout lays out root and, transitively, every descendant whose own
// NeedsLayout mark or DescendantNeedsLayout mark is set, skipping clean
// subtrees entirely. Within a dirty subtree, Object.Layout's own cache
// check (same constraints, same parent-use-size, not marked dirty) is
// what actually lets an unaffected relayout boundary skip recomputation;
// DriveLayout's job is only to avoid walking into subtrees that have no
// dirty mark at all.
func DriveLayout(root *Object, constraints Constraints) {
	driveLayout(root, constraints, false)
}

func driveLayout(o *Object, constraints Constraints, parentUsesSize bool) {
	mark := o.Mark()
	if !mark.Has(MarkNeedsLayout) && !mark.Has(MarkDescendantNeedsLayout) {
		return
	}
	o.Layout(constraints, parentUsesSize)
	// A cache hit above leaves dirty descendants untouched, so walk into
	// each child and lay it out again against its own last constraints.
	for _, c := range o.Children() {
		c.cache.mu.Lock()
		have, last, usesSize := c.cache.haveLayout, c.cache.lastConstraints, c.cache.lastParentUseSize
		c.cache.mu.Unlock()
		if have {
			driveLayout(c, last, usesSize)
		}
	}
	o.ClearMark(MarkDescendantNeedsLayout)
}

// PropagateNeedsLayout marks o dirty and walks up to the nearest relayout
// boundary (inclusive), marking each ancestor's descendant-needs-layout
// bit along the way, then stops: layout dirtiness never needs to cross a
// boundary, since the boundary's own cached size is unaffected by what's
// below it.
func PropagateNeedsLayout(o *Object, parent func(*Object) *Object) {
	o.AddMark(MarkNeedsLayout)
	if o.IsRelayoutBoundary() {
		return
	}
	for p := parent(o); p != nil; p = parent(p) {
		if p.Mark().Has(MarkDescendantNeedsLayout) {
			return
		}
		p.AddMark(MarkDescendantNeedsLayout)
		if p.IsRelayoutBoundary() {
			return
		}
	}
}
