// Package hook implements the ordered, positionally-keyed state cells an
// element's build function reads on every rebuild: use_state, use_effect,
// use_memo, use_future, and use_transition.
//
// A Sequence is rebuilt in lockstep with its owning element: Begin resets
// the read cursor to zero, and each use_* call consumes the next cell in
// order. Reading hooks out of order across rebuilds (an if/else that
// hides a hook behind a condition) desyncs the cursor from the cell it
// expects; callers are responsible for calling hooks unconditionally, the
// same discipline a React-style hook tree expects of its own per-frame
// state.
package hook

import "fmt"

type cellKind int

const (
	kindState cellKind = iota
	kindEffect
	kindMemo
	kindFuture
	kindTransition
)

func (k cellKind) String() string {
	switch k {
	case kindState:
		return "state"
	case kindEffect:
		return "effect"
	case kindMemo:
		return "memo"
	case kindFuture:
		return "future"
	case kindTransition:
		return "transition"
	default:
		return fmt.Sprintf("cellKind(%d)", int(k))
	}
}

type cell struct {
	kind cellKind

	// state
	value any

	// effect / memo
	deps    []any
	cleanup func()
	memoVal any

	// future
	future *futureCell
}

// Sequence is one element's ordered hook cells, rebuilt every time the
// element rebuilds.
type Sequence struct {
	cells  []*cell
	cursor int
}

// Begin resets the read cursor for a fresh rebuild. It must be called
// before the element's build function runs.
func (s *Sequence) Begin() { s.cursor = 0 }

// End asserts that the rebuild consumed exactly the cells that exist, the
// Go analogue of the Rust source's "hooks built so far" bookkeeping: a
// shorter read sequence means a hook call was skipped since the previous
// build, which the reconciler treats as a fatal invariant violation since
// it would corrupt every subsequent cell's identity.
func (s *Sequence) End() {
	if s.cursor != len(s.cells) {
		panic(fmt.Sprintf("hook: rebuild read %d hooks but sequence holds %d; a use_* call must run unconditionally on every rebuild", s.cursor, len(s.cells)))
	}
}

func (s *Sequence) next(kind cellKind, zero func() *cell) *cell {
	if s.cursor < len(s.cells) {
		c := s.cells[s.cursor]
		if c.kind != kind {
			panic(fmt.Sprintf("hook: cell %d was %v on a previous build, now requested as %v; hook call order must not change between rebuilds", s.cursor, c.kind, kind))
		}
		s.cursor++
		return c
	}
	c := zero()
	s.cells = append(s.cells, c)
	s.cursor++
	return c
}
