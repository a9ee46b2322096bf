package widget

// ReconcileKind classifies how one child slot's new widget relates to
// whatever old widget/element previously occupied it.
type ReconcileKind int

const (
	// ReconcileKeep means the slot is unchanged: no old or new widget
	// differs in a way that requires touching the element.
	ReconcileKeep ReconcileKind = iota
	// ReconcileUpdate means an existing element at this slot should be
	// rebuilt against NewWidget.
	ReconcileUpdate
	// ReconcileInflate means a new element should be mounted for
	// NewWidget; there is no matching old child.
	ReconcileInflate
	// ReconcileUnmount means OldWidget's element has no match in the new
	// child list and should be torn down.
	ReconcileUnmount
)

// ReconcileItem is one instruction the element package's child
// reconciliation executes against a single child slot.
type ReconcileItem struct {
	Kind      ReconcileKind
	OldIndex  int // index into the old child list, valid for Keep/Update/Unmount
	OldWidget Widget
	NewWidget Widget // valid for Keep/Update/Inflate
}

// ReconcileChildren runs the two-phase keyed vector diff: a longest-common-
// prefix pass by position where widget type and key already match, then a
// key-indexed pass over the remaining tail that reuses out-of-place
// matches by (type, key) before falling back to inflating new children.
// Any old child never claimed by the tail pass is unmounted.
func ReconcileChildren(old, new []Widget) []ReconcileItem {
	items := make([]ReconcileItem, 0, len(new))

	prefix := 0
	for prefix < len(old) && prefix < len(new) && SameFactory(old[prefix], new[prefix]) {
		items = append(items, ReconcileItem{Kind: slotKind(old[prefix], new[prefix]), OldIndex: prefix, OldWidget: old[prefix], NewWidget: new[prefix]})
		prefix++
	}

	type oldSlot struct {
		index int
		taken bool
	}
	byKey := make(map[reconcileKey]*oldSlot, len(old)-prefix)
	slots := make([]*oldSlot, 0, len(old)-prefix)
	for i := prefix; i < len(old); i++ {
		slot := &oldSlot{index: i}
		slots = append(slots, slot)
		byKey[keyFor(old[i])] = slot
	}

	for i := prefix; i < len(new); i++ {
		k := keyFor(new[i])
		if slot, ok := byKey[k]; ok && !slot.taken {
			slot.taken = true
			items = append(items, ReconcileItem{Kind: ReconcileUpdate, OldIndex: slot.index, OldWidget: old[slot.index], NewWidget: new[i]})
			continue
		}
		items = append(items, ReconcileItem{Kind: ReconcileInflate, NewWidget: new[i]})
	}

	for _, slot := range slots {
		if !slot.taken {
			items = append(items, ReconcileItem{Kind: ReconcileUnmount, OldIndex: slot.index, OldWidget: old[slot.index]})
		}
	}

	return items
}

// reconcileKey is the (concrete type, key) identity used to match an old
// child to a new widget once position alone no longer aligns them.
type reconcileKey struct {
	typ any
	key Key
}

func keyFor(w Widget) reconcileKey {
	return reconcileKey{typ: widgetType(w), key: w.Key()}
}

// slotKind reports Keep for a prefix slot whose widget is re-delivered
// unchanged (Identical), else Update. Only the prefix pass uses this: a
// key-matched widget that moved position is a new placement, not a no-op,
// even when its value happens to be unchanged.
func slotKind(old, new Widget) ReconcileKind {
	if Identical(old, new) {
		return ReconcileKeep
	}
	return ReconcileUpdate
}
