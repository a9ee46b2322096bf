package hook

import (
	"context"
	"errors"
	"sync"
)

// ErrSuspended is returned by UseFuture while its backing future has not
// yet resolved. The element reconciler treats it, like any build error, as
// a suspension; ErrSuspended carries no Waker, so the suspension it
// records has none.
var ErrSuspended = errors.New("hook: build suspended on an unresolved future")

// Waker is invoked (by whichever executor ran the future) once a
// suspended UseFuture's dependency resolves. The reconciler subscribes to
// it to schedule a poll-rebuild.
type Waker func(fire func())

type futureState int

const (
	futurePending futureState = iota
	futureLoaded
)

type futureCell struct {
	mu    sync.Mutex
	state futureState
	value any
	err   error
	woken chan struct{}
}

// UseFuture starts fut (once, or again whenever deps changes) on a
// separate goroutine and suspends the build — returning the zero value of
// T and ErrSuspended — until it resolves. Grounded on gioverse-chat's own
// async.Loader, which schedules a LoadFunc once per Tag and polls a
// Resource{State, Value} on every subsequent call; the difference here is
// that an unresolved future suspends the whole build rather than letting
// layout proceed with a placeholder.
func UseFuture[T any](s *Sequence, deps []any, fut func(ctx context.Context) T) (T, error) {
	c := s.next(kindFuture, func() *cell { return &cell{kind: kindFuture} })
	var zero T

	if c.future != nil && depsEqual(c.deps, deps) {
		return pollFuture[T](c.future)
	}

	c.deps = deps
	fc := &futureCell{state: futurePending, woken: make(chan struct{})}
	c.future = fc
	go func() {
		v := fut(context.Background())
		fc.mu.Lock()
		fc.state = futureLoaded
		fc.value = v
		fc.mu.Unlock()
		close(fc.woken)
	}()
	return zero, ErrSuspended
}

func pollFuture[T any](fc *futureCell) (T, error) {
	var zero T
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.state == futurePending {
		return zero, ErrSuspended
	}
	v, _ := fc.value.(T)
	return v, fc.err
}

// Subscribe registers waker to be invoked once the most recently started
// future for this cell resolves. If the future has already resolved,
// waker fires immediately. Used by the reconciler to schedule a
// poll-rebuild for a suspended element.
func (c *cell) Subscribe(waker Waker) {
	if c.future == nil {
		return
	}
	fc := c.future
	waker(func() {
		<-fc.woken
	})
}

// FutureCellAt exposes the future cell at index i for Subscribe, used by
// the reconciler when wiring a suspended build's waker. Panics if i is out
// of range or the cell at i is not a future cell.
func (s *Sequence) FutureCellAt(i int) *cell {
	c := s.cells[i]
	if c.kind != kindFuture {
		panic("hook: FutureCellAt on a non-future cell")
	}
	return c
}

// PendingCursor reports how many cells the most recent (possibly
// suspended) build consumed before suspending, so the reconciler knows
// where to resume hook reads on the next poll.
func (s *Sequence) PendingCursor() int { return s.cursor }
