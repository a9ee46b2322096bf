package provider

import (
	"reflect"
	"testing"

	"github.com/arbor-ui/arbor/internal/barrier"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/tree"
)

type counterValue int

func typeKey() tree.TypeKey { return reflect.TypeOf(counterValue(0)) }

func TestWriteSyncNotifiesMainlineAndReservedReaders(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	mainlineReader := tree.Mount(root, nil)
	reservedReader := tree.Mount(root, nil)

	if _, contended := obj.RegisterRead(mainlineReader); contended {
		t.Fatal("did not expect contention on a fresh provider")
	}

	batchConf := &job.BatchConf{ID: job.BatchID{}, Priority: job.Normal}
	obj.ReserveRead(reservedReader, lane.Async(0), batchConf, barrier.New(), func() {})

	result := obj.WriteSync(counterValue(1))
	if len(result.Mainline) != 1 || result.Mainline[0] != mainlineReader {
		t.Fatalf("expected mainline reader in contending set, got %v", result.Mainline)
	}
	if len(result.NonMainline) != 1 || result.NonMainline[0].Node != reservedReader {
		t.Fatalf("expected reserved reader in non-mainline contending set, got %v", result.NonMainline)
	}
	if got := obj.Value(); got != counterValue(1) {
		t.Fatalf("expected committed value 1, got %v", got)
	}
}

func TestReserveWriteAsyncBackqueuesBehindExistingReaders(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	reader := tree.Mount(root, nil)

	readBatch := &job.BatchConf{Priority: job.Normal}
	obj.ReserveRead(reader, lane.Async(0), readBatch, barrier.New(), func() {})

	writeBatch := &job.BatchConf{Priority: job.Low}
	reorderCalled := false
	commit := barrier.New()
	obj.ReserveWriteAsync(lane.Async(1), counterValue(2), writeBatch, commit, func() { reorderCalled = true })

	if !reorderCalled {
		t.Fatal("expected reorder callback when backqueuing a writer behind live readers")
	}
	if obj.reservation.kind != reservedForRead {
		t.Fatal("provider should remain reserved for read while readers are outstanding")
	}

	obj.UnreserveRead(reader, lane.Async(0))
	if obj.reservation.kind != reservedForWrite {
		t.Fatal("releasing the last reader should promote the backqueued writer")
	}
}

func TestCommitAsyncWriteInstallsValueAndRestoresBackqueuedReaders(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	reader := tree.Mount(root, nil)

	writeBatch := &job.BatchConf{Priority: job.Normal, ID: job.BatchID{}}
	mainline := obj.ReserveWriteAsync(lane.Async(0), counterValue(5), writeBatch, barrier.New(), func() {})
	if len(mainline) != 0 {
		t.Fatalf("expected no mainline consumers yet, got %v", mainline)
	}

	readBatch := &job.BatchConf{Priority: job.Low}
	obj.ReserveRead(reader, lane.Async(1), readBatch, barrier.New(), func() {})

	obj.CommitAsyncWrite(lane.Async(0), writeBatch.ID)

	if got := obj.Value(); got != counterValue(5) {
		t.Fatalf("expected committed value 5, got %v", got)
	}
	if obj.reservation.kind != reservedForRead {
		t.Fatal("provider should return to reserved-for-read after committing the async write")
	}
	if _, ok := obj.reservation.readers[lane.Async(1)]; !ok {
		t.Fatal("expected the backqueued reader to be restored as a live reservation")
	}
}

func TestWriteSyncDuringAsyncWriteInvalidatesTheOccupyingWriter(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	reader := tree.Mount(root, nil)

	writeBatch := &job.BatchConf{Priority: job.Normal, ID: job.BatchID{}}
	obj.ReserveWriteAsync(lane.Async(0), counterValue(9), writeBatch, barrier.New(), func() {})

	readBatch := &job.BatchConf{Priority: job.Low}
	obj.ReserveRead(reader, lane.Async(1), readBatch, barrier.New(), func() {})

	result := obj.WriteSync(counterValue(1))

	if len(result.Invalidated) != 1 || result.Invalidated[0] != lane.Async(0) {
		t.Fatalf("expected the occupying async writer's lane invalidated, got %v", result.Invalidated)
	}
	if len(result.NonMainline) != 1 || result.NonMainline[0].Node != reader {
		t.Fatalf("expected the backqueued reader reported as contending, got %v", result.NonMainline)
	}
	if got := obj.Value(); got != counterValue(1) {
		t.Fatalf("expected the synchronous write to win, got %v", got)
	}
	if obj.reservation.kind != reservedForRead {
		t.Fatal("expected the provider to settle back to reserved-for-read")
	}
	if _, ok := obj.OccupyingWriter(); ok {
		t.Fatal("expected no occupying writer left after the sync write invalidated it")
	}
}

func TestWriteSyncInvalidatesBackqueuedWriter(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	reader := tree.Mount(root, nil)

	obj.ReserveRead(reader, lane.Async(0), &job.BatchConf{Priority: job.Normal}, barrier.New(), func() {})

	reorderCalled := false
	obj.ReserveWriteAsync(lane.Async(1), counterValue(7), &job.BatchConf{Priority: job.Low}, barrier.New(), func() { reorderCalled = true })
	if !reorderCalled {
		t.Fatal("expected reorder callback when backqueuing behind a live reader")
	}

	result := obj.WriteSync(counterValue(2))
	if len(result.Invalidated) != 1 || result.Invalidated[0] != lane.Async(1) {
		t.Fatalf("expected the backqueued writer's lane invalidated, got %v", result.Invalidated)
	}
	if obj.reservation.kind != reservedForRead {
		t.Fatal("expected the provider to settle back to reserved-for-read")
	}
}

func TestRegisterReservedReadPromotesToMainline(t *testing.T) {
	obj := New(counterValue(0), typeKey())
	root := tree.NewRoot()
	reader := tree.Mount(root, nil)

	batchConf := &job.BatchConf{Priority: job.Normal}
	obj.ReserveRead(reader, lane.Async(0), batchConf, barrier.New(), func() {})
	obj.RegisterReservedRead(reader, lane.Async(0))

	if _, ok := obj.reservation.readers[lane.Async(0)]; ok {
		t.Fatal("expected reserved read to be removed once promoted")
	}
	consumers := obj.Consumers()
	if len(consumers) != 1 || consumers[0] != reader {
		t.Fatalf("expected reader promoted to mainline consumer, got %v", consumers)
	}
}
