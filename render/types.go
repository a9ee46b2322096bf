// Package render implements the render-object pipeline: layout with
// relayout-boundary pruning, paint with repaint-boundary layer caching,
// bottom-up composition with a per-layer memo cache, and top-down hit
// testing.
//
// Render objects reuse gioui.org/layout's Constraints and image.Point for
// geometry rather than hand-rolled types, the way gioverse-chat's own list
// and layout packages express widget geometry — this package never
// imports gioui.org/app, so no window or event-loop integration comes
// along with it.
package render

import (
	"image"

	"gioui.org/layout"
)

// Constraints bound a render object's chosen size during layout.
type Constraints = layout.Constraints

// Size is a render object's chosen width and height.
type Size = image.Point

// Offset positions a child within its parent's coordinate space.
type Offset = image.Point

// LayoutMemo is the type-erased per-protocol data a layout pass produces
// alongside a size, consumed later during paint (e.g. baked line-break
// positions for text, or flex factors for a row).
type LayoutMemo any

// Action is the propagated consequence of a render-object update, ordered
// from least to most disruptive: None < Recomposite < Repaint < Relayout.
type Action int

const (
	ActionNone Action = iota
	ActionRecomposite
	ActionRepaint
	ActionRelayout
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionRecomposite:
		return "Recomposite"
	case ActionRepaint:
		return "Repaint"
	case ActionRelayout:
		return "Relayout"
	default:
		return "Action(?)"
	}
}

// Max returns the more disruptive of two actions, the rule §4.3 uses to
// propagate a commit's action from the max of a render object's own
// action and its children's actions.
func Max(a, b Action) Action {
	if b > a {
		return b
	}
	return a
}
