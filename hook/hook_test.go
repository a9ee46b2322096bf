package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arbor-ui/arbor/job"
)

func TestUseStatePreservesValueAcrossRebuilds(t *testing.T) {
	var seq Sequence

	seq.Begin()
	v, setter := UseState(&seq, 0)
	if v != 0 {
		t.Fatalf("expected initial value 0, got %d", v)
	}
	setter(5, nil)
	seq.End()

	seq.Begin()
	v, _ = UseState(&seq, 0)
	seq.End()
	if v != 5 {
		t.Fatalf("expected value to persist as 5 across rebuild, got %d", v)
	}
}

func TestUseEffectRunsOnlyWhenDepsChange(t *testing.T) {
	var seq Sequence
	runs := 0

	build := func(dep int) {
		seq.Begin()
		UseEffect(&seq, []any{dep}, func() func() {
			runs++
			return nil
		})
		seq.End()
	}

	build(1)
	build(1)
	build(2)

	if runs != 2 {
		t.Fatalf("expected effect to run twice (initial + dep change), got %d", runs)
	}
}

func TestUseEffectRunsCleanupBeforeNextEffect(t *testing.T) {
	var seq Sequence
	cleaned := false

	build := func(dep int) {
		seq.Begin()
		UseEffect(&seq, []any{dep}, func() func() {
			return func() { cleaned = true }
		})
		seq.End()
	}

	build(1)
	build(2)

	if !cleaned {
		t.Fatal("expected previous effect's cleanup to run when deps changed")
	}
}

func TestUseMemoRecomputesOnlyOnDepsChange(t *testing.T) {
	var seq Sequence
	computations := 0

	build := func(dep int) int {
		seq.Begin()
		v := UseMemo(&seq, []any{dep}, func() int {
			computations++
			return dep * 2
		})
		seq.End()
		return v
	}

	if got := build(3); got != 6 {
		t.Fatalf("expected memo value 6, got %d", got)
	}
	build(3)
	if got := build(4); got != 8 {
		t.Fatalf("expected memo value 8, got %d", got)
	}
	if computations != 2 {
		t.Fatalf("expected 2 recomputations, got %d", computations)
	}
}

func TestEndPanicsOnShortenedHookSequence(t *testing.T) {
	var seq Sequence
	seq.Begin()
	UseState(&seq, 0)
	UseState(&seq, 0)
	seq.End()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when a rebuild reads fewer hooks than before")
		}
	}()
	seq.Begin()
	UseState(&seq, 0)
	seq.End()
}

func TestUseFutureSuspendsUntilResolved(t *testing.T) {
	var seq Sequence
	release := make(chan struct{})

	build := func() (int, error) {
		seq.Begin()
		v, err := UseFuture(&seq, []any{"dep"}, func(ctx context.Context) int {
			<-release
			return 42
		})
		seq.End()
		return v, err
	}

	_, err := build()
	if !errors.Is(err, ErrSuspended) {
		t.Fatalf("expected ErrSuspended on first poll, got %v", err)
	}

	close(release)
	time.Sleep(10 * time.Millisecond)

	v, err := build()
	if err != nil {
		t.Fatalf("expected resolved future, got error %v", err)
	}
	if v != 42 {
		t.Fatalf("expected resolved value 42, got %d", v)
	}
}

func TestUseTransitionPendingUntilBatchGone(t *testing.T) {
	var seq Sequence
	seq.Begin()
	ts := UseTransition(&seq)
	seq.End()

	liveBatches := map[job.BatchID]bool{}
	batchLive := func(id job.BatchID) bool { return liveBatches[id] }

	id := job.BatchID{}
	ts.Start(func(p job.Priority) job.BatchID {
		if p != job.Low {
			t.Fatalf("expected transition to submit at Low priority, got %v", p)
		}
		liveBatches[id] = true
		return id
	})

	if !ts.IsPending(batchLive) {
		t.Fatal("expected transition to be pending right after Start")
	}

	delete(liveBatches, id)
	if ts.IsPending(batchLive) {
		t.Fatal("expected transition to stop being pending once its batch is gone")
	}
}
