// Package widget defines the inward-facing contract library authors build
// against: the Widget identity/compatibility rules, the handful of child
// container shapes a widget can own, and the element/render contracts an
// element type implements to participate in reconciliation. It mirrors the
// split in gioverse-chat's list package between an immutable description
// (list.Element/Serial) and the allocated state/presentation built from it
// (list.Allocator/Presenter), generalized into a full element tree.
package widget

import (
	"reflect"

	"github.com/arbor-ui/arbor/tree"
)

// Key distinguishes widgets of the same concrete type occupying the same
// child slot, the way list.Serial distinguishes rows of the same shape. A
// nil key means the widget is positionally matched instead.
type Key any

// Widget is the immutable description every element type is built from.
// Only a widget's key and concrete Go type participate in reconciliation
// matching; all other state lives on the Element or further down the
// widget's own fields.
type Widget interface {
	// Key returns this widget's reconciliation key, or nil if it has none.
	Key() Key
}

// SameFactory reports whether old and candidate would be built by the same
// element factory: the same concrete widget type and the same key. Per the
// invariant, a widget is only ever reconciled into an element whose
// factory matches it; otherwise the old element is unmounted and a new one
// inflated in its slot.
func SameFactory(old, candidate Widget) bool {
	if old == nil || candidate == nil {
		return false
	}
	if widgetType(old) != widgetType(candidate) {
		return false
	}
	return old.Key() == candidate.Key()
}

func widgetType(w Widget) reflect.Type { return reflect.TypeOf(w) }

// Identical reports whether a and b are the same widget value: both the
// concrete type and every field match, so rebuilding against b would
// produce exactly the build a already produced. Rebuild uses this to
// skip reconciling a child outright when its widget is re-delivered
// unchanged, rather than forcing a full PerformRebuild over data that
// did not change. Non-comparable widget types (one holding a slice or
// map field) never count as identical, since Go cannot compare them
// without risking a runtime panic.
func Identical(a, b Widget) bool {
	if a == nil || b == nil {
		return a == b
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() || !av.Type().Comparable() {
		return false
	}
	return a == b
}

// Suspense is the built-in boundary widget: it shows Primary's subtree
// once mounted, but falls back to Fallback for as long as Primary's
// build reports BuildSuspended, swapping back to Primary automatically
// once its build succeeds again. Unlike ordinary widgets, a Suspense is
// handled directly by the element package rather than through a
// library-authored Spec, since the primary/fallback swap needs to
// observe whether mounting Primary actually suspended before it can
// decide which subtree to keep live.
type Suspense struct {
	SuspenseKey Key
	Primary     Widget
	Fallback    Widget
}

func (s Suspense) Key() Key { return s.SuspenseKey }

// ChildContainer is implemented by the handful of shapes a widget's
// children can take: a keyed vector, a fixed-arity tuple, or an optional
// single child. An element's render object mirrors whichever shape its
// widget's ChildContainer uses.
type ChildContainer interface {
	// Slots returns the container's children in order, with nil entries
	// for absent fixed-arity or optional slots.
	Slots() []Widget
}

// Children is the vector child container, reconciled with the keyed diff
// in reconcile.go.
type Children []Widget

func (c Children) Slots() []Widget { return []Widget(c) }

// FixedChildren is a fixed-arity child container (e.g. a two-pane split
// widget with exactly a "first" and "second" child). Arity is fixed at
// construction and never changes across rebuilds of the same widget type.
type FixedChildren []Widget

func (c FixedChildren) Slots() []Widget { return []Widget(c) }

// NewFixedChildren builds a FixedChildren of exactly arity slots, panicking
// if the caller supplied a different number — a fixed-arity widget type
// constructing its own container with the wrong arity is a programming
// error, not a runtime condition to recover from.
func NewFixedChildren(arity int, slots ...Widget) FixedChildren {
	if len(slots) != arity {
		panic("widget: FixedChildren arity mismatch")
	}
	return FixedChildren(slots)
}

// OptionalChild is the Option<Child> container: zero or one child.
type OptionalChild struct {
	Child Widget // nil if absent
}

func (c OptionalChild) Slots() []Widget {
	if c.Child == nil {
		return nil
	}
	return []Widget{c.Child}
}

// ConsumedTypes is the set of provider type-keys an element type reads.
type ConsumedTypes []tree.TypeKey

// Contains reports whether t is among the consumed types.
func (c ConsumedTypes) Contains(t tree.TypeKey) bool {
	for _, k := range c {
		if k == t {
			return true
		}
	}
	return false
}
