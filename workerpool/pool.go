// Package workerpool provides a scope-based fork/join primitive: a bounded
// pool of workers plus a per-walk Scope that forks tasks and joins on all
// of them before the caller continues. The lane scheduler runs each async
// lane's walk in a Scope; the element reconciler visits children one after
// another and does not use this package.
//
// The pool's bounded-concurrency shape is the same one gioverse-chat's own
// async.FixedWorkerPool uses (a fixed number of long-lived workers), but
// the admission and fork/join bookkeeping is built on
// golang.org/x/sync/errgroup and golang.org/x/sync/semaphore instead of a
// hand-rolled channel: errgroup already gives first-error propagation and
// context cancellation for a cancelled async batch, and the semaphore
// gives the async queue's try-acquire ("yield vs block") admission test a
// primitive to call directly instead of emulating it over channels.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running fork/join tasks across
// every Scope drawn from it.
type Pool struct {
	sem *semaphore.Weighted
	cap int64
}

// New constructs a pool that admits at most workers concurrent tasks.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), cap: int64(workers)}
}

// Capacity reports the pool's configured worker count.
func (p *Pool) Capacity() int { return int(p.cap) }

// TryAcquire attempts to reserve one worker slot without blocking, the
// "yield vs block" admission test: a caller that cannot immediately acquire
// a slot can yield rather than block on a full pool. Neither the scheduler
// nor the reconciler in this module calls it.
func (p *Pool) TryAcquire() bool { return p.sem.TryAcquire(1) }

// Release returns a worker slot acquired via TryAcquire or Scope.
func (p *Pool) Release() { p.sem.Release(1) }

// Scope runs fn, which may fork concurrent tasks via the Scope argument's
// Go method, and blocks until every forked task (and fn itself) has
// completed or one has failed. The first error from any task is returned,
// and ctx is cancelled so siblings still running can observe the failure
// and stop early.
func (p *Pool) Scope(ctx context.Context, fn func(ctx context.Context, s *Scope) error) error {
	g, gctx := errgroup.WithContext(ctx)
	s := &Scope{pool: p, group: g, ctx: gctx}
	if err := fn(gctx, s); err != nil {
		return err
	}
	return g.Wait()
}

// Scope lets a fork/join task spawn children bounded by the owning Pool's
// capacity.
type Scope struct {
	pool  *Pool
	group *errgroup.Group
	ctx   context.Context
}

// Go forks fn as a concurrent task, acquiring a pool slot first (blocking
// if the pool is saturated). The task participates in the Scope's join:
// Pool.Scope does not return until every forked task has completed.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	s.group.Go(func() error {
		if err := s.pool.sem.Acquire(s.ctx, 1); err != nil {
			return err
		}
		defer s.pool.Release()
		return fn(s.ctx)
	})
}

// Context returns the scope's cancellation context, cancelled if any
// forked task in this scope (or an ancestor scope) fails.
func (s *Scope) Context() context.Context { return s.ctx }
