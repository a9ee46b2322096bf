package hook

import "reflect"

// Setter appends a state mutation for a use_state cell. Call sites pass
// an apply callback, which the setter invokes with the value to install;
// routing that value through a job and a mailbox push is left to the
// callback, since this package has access to neither.
type Setter[T any] func(next T, apply func(T))

// UseState returns the cell's current value and a setter that invokes
// apply with the value it should install, leaving the caller (the element
// package's rebuild driver) to route that through a job and a mailbox
// push. This mirrors the source's "SetState<T> appends to the targeted
// element's mailbox under a caller-provided JobBuilder" contract without
// this package needing to import job or tree.
func UseState[T any](s *Sequence, initial T) (T, Setter[T]) {
	c := s.next(kindState, func() *cell { return &cell{kind: kindState, value: initial} })
	current, _ := c.value.(T)
	setter := func(next T, apply func(T)) {
		c.value = next
		if apply != nil {
			apply(next)
		}
	}
	return current, setter
}

// UseStateWith is UseState with lazy initialization: init only runs the
// first time this cell is created.
func UseStateWith[T any](s *Sequence, init func() T) (T, Setter[T]) {
	c := s.next(kindState, func() *cell { return &cell{kind: kindState, value: init()} })
	current, _ := c.value.(T)
	setter := func(next T, apply func(T)) {
		c.value = next
		if apply != nil {
			apply(next)
		}
	}
	return current, setter
}

// UseEffect runs f, whose return value is a cleanup function (or nil),
// whenever deps changes from the previous build (by deep comparison) or
// on the first build. The previous build's cleanup, if any, runs first.
func UseEffect(s *Sequence, deps []any, f func() func()) {
	c := s.next(kindEffect, func() *cell { return &cell{kind: kindEffect} })
	if depsEqual(c.deps, deps) {
		return
	}
	if c.cleanup != nil {
		c.cleanup()
	}
	c.deps = deps
	c.cleanup = f()
}

// UseMemo recomputes f only when deps changes from the previous build (or
// on the first build), caching the result across rebuilds otherwise.
func UseMemo[T any](s *Sequence, deps []any, f func() T) T {
	c := s.next(kindMemo, func() *cell { return &cell{kind: kindMemo} })
	if !depsEqual(c.deps, deps) {
		c.deps = deps
		c.memoVal = f()
	}
	v, _ := c.memoVal.(T)
	return v
}

func depsEqual(a, b []any) bool {
	if a == nil {
		return false // first build: nil deps never match, forcing the initial run
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
