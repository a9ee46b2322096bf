// Package lane defines the small closed set of scheduling lanes that the
// rest of the core schedules work onto: one synchronous lane and a fixed
// number of asynchronous lanes, encoded as a bitmask so that membership and
// union tests on a subtree are O(1).
package lane

import "fmt"

// MaxAsync is the maximum number of concurrently live asynchronous lanes.
const MaxAsync = 31

// Pos identifies a single lane: Sync, or one of the asynchronous positions
// in [0, MaxAsync).
type Pos int8

// Sync is the highest-priority lane; synchronous work always preempts any
// asynchronous lane occupying the same node.
const Sync Pos = -1

// Async returns the lane position for asynchronous slot i.
func Async(i int) Pos {
	if i < 0 || i >= MaxAsync {
		panic(fmt.Sprintf("lane: async index %d out of range [0,%d)", i, MaxAsync))
	}
	return Pos(i)
}

// IsSync reports whether the position is the sync lane.
func (p Pos) IsSync() bool { return p == Sync }

func (p Pos) String() string {
	if p.IsSync() {
		return "Sync"
	}
	return fmt.Sprintf("Async[%d]", int(p))
}

// bit returns the mask bit for a lane position. The sync lane occupies the
// top bit so a mask with only async bits set never collides with it.
func (p Pos) bit() Mask {
	if p.IsSync() {
		return Mask(1) << 63
	}
	return Mask(1) << uint(p)
}

// Mask is a bitset over lane positions, used to answer "does this subtree
// contain work for lane L" in O(1) per node.
type Mask uint64

// None is the empty mask.
const None Mask = 0

// With returns the mask with p added.
func (m Mask) With(p Pos) Mask { return m | p.bit() }

// Without returns the mask with p removed.
func (m Mask) Without(p Pos) Mask { return m &^ p.bit() }

// Has reports whether p is present in m.
func (m Mask) Has(p Pos) bool { return m&p.bit() != 0 }

// Union returns the bitwise union of two masks.
func (m Mask) Union(other Mask) Mask { return m | other }

// Intersect returns the bitwise intersection of two masks.
func (m Mask) Intersect(other Mask) Mask { return m & other }

// IsEmpty reports whether the mask has no lanes set.
func (m Mask) IsEmpty() bool { return m == None }

// Positions decodes the mask into its constituent lane positions, sync
// first if present.
func (m Mask) Positions() []Pos {
	var out []Pos
	if m.Has(Sync) {
		out = append(out, Sync)
	}
	for i := 0; i < MaxAsync; i++ {
		if p := Pos(i); m.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
