// Package provider implements the typed value a context node exposes to
// its descendants, plus the reservation protocol that lets asynchronous
// batches read or write it without racing a synchronous commit.
//
// An async read or write does not take the value's lock for the duration
// of a batch; instead it reserves a slot (by lane) in the provider's
// reservation state machine, does its work off that reservation, and only
// touches the real value at commit time. A synchronous write always wins
// contention with any reservation, which is why Object keeps two
// separate synchronization paths: RWMutex-guarded value storage for the
// fast read path, and a plain mutex over the reservation bookkeeping.
package provider

import (
	"fmt"
	"sync"

	"github.com/arbor-ui/arbor/internal/barrier"
	"github.com/arbor-ui/arbor/job"
	"github.com/arbor-ui/arbor/lane"
	"github.com/arbor-ui/arbor/tree"
)

// Object is the provided value at a single context node: a type-erased
// value plus the set of consumer nodes and the in-flight reservations
// against it.
type Object struct {
	TypeKey tree.TypeKey

	valueMu sync.RWMutex
	value   any

	mu          sync.Mutex
	consumers   map[*tree.Node]struct{}
	reservation reservation
}

// New constructs a provider object holding value, with no consumers and
// an empty read reservation.
func New(value any, typeKey tree.TypeKey) *Object {
	return &Object{
		TypeKey:   typeKey,
		value:     value,
		consumers: make(map[*tree.Node]struct{}),
		reservation: reservation{
			kind:    reservedForRead,
			readers: make(map[lane.Pos]*readingBatch),
		},
	}
}

// Value returns the current committed value.
func (o *Object) Value() any {
	o.valueMu.RLock()
	defer o.valueMu.RUnlock()
	return o.value
}

type reservationKind int

const (
	reservedForRead reservationKind = iota
	reservedForWrite
)

// readingBatch tracks the subscriber nodes waiting on one lane's read
// reservation, along with the batch they belong to (needed to resolve
// priority contention against a backqueued writer).
type readingBatch struct {
	id       job.BatchID
	priority job.Priority
	nodes    map[*tree.Node]struct{}
}

func newReadingBatch(conf *job.BatchConf) *readingBatch {
	return &readingBatch{id: conf.ID, priority: conf.Priority, nodes: map[*tree.Node]struct{}{}}
}

type writer struct {
	lanePos  lane.Pos
	batchID  job.BatchID
	priority job.Priority
	value    any
}

type backqueuedWriter struct {
	writer  writer
	barrier barrier.CommitBarrier
}

type backqueuedRead struct {
	batch   *readingBatch
	barrier barrier.CommitBarrier
}

// reservation is the provider's async occupation state: either reserved
// for reading on zero or more lanes (with at most one writer backqueued
// behind all of them), or reserved for a single writer (with zero or more
// readers backqueued behind it).
type reservation struct {
	kind reservationKind

	// valid when kind == reservedForRead
	readers         map[lane.Pos]*readingBatch
	backqueueWriter *backqueuedWriter

	// valid when kind == reservedForWrite
	writer           *writer
	backqueueReaders map[lane.Pos]*backqueuedRead
}

// ReserveRead registers subscriber as reading this provider on lanePos for
// the duration of batch. If the provider is currently reserved for write,
// the read is backqueued behind it and reorderReservation is invoked so the
// scheduler can resolve priority between the backqueued read and the
// occupying writer; the read still succeeds immediately regardless, since
// it only observes the last committed value.
func (o *Object) ReserveRead(subscriber *tree.Node, lanePos lane.Pos, conf *job.BatchConf, commit barrier.CommitBarrier, reorderReservation func()) any {
	o.mu.Lock()
	switch o.reservation.kind {
	case reservedForRead:
		batch, ok := o.reservation.readers[lanePos]
		if !ok {
			batch = newReadingBatch(conf)
			o.reservation.readers[lanePos] = batch
		}
		batch.nodes[subscriber] = struct{}{}
	case reservedForWrite:
		bq, ok := o.reservation.backqueueReaders[lanePos]
		if !ok {
			bq = &backqueuedRead{batch: newReadingBatch(conf), barrier: commit}
			o.reservation.backqueueReaders[lanePos] = bq
			reorderReservation()
		}
		bq.batch.nodes[subscriber] = struct{}{}
	}
	o.mu.Unlock()
	return o.Value()
}

// UnreserveRead releases subscriber's read reservation on lanePos. If this
// empties the lane and there is a backqueued writer with no other lanes
// still reading, the provider transitions to reserved-for-write.
func (o *Object) UnreserveRead(subscriber *tree.Node, lanePos lane.Pos) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.reservation.kind {
	case reservedForRead:
		batch, ok := o.reservation.readers[lanePos]
		if !ok {
			panic(fmt.Sprintf("provider: no read reservation on lane %v to remove", lanePos))
		}
		delete(batch.nodes, subscriber)
		if len(batch.nodes) != 0 {
			return
		}
		delete(o.reservation.readers, lanePos)
		if len(o.reservation.readers) != 0 {
			return
		}
		if o.reservation.backqueueWriter == nil {
			return
		}
		bq := o.reservation.backqueueWriter
		bq.barrier.Release()
		o.reservation = reservation{kind: reservedForWrite, writer: &bq.writer, backqueueReaders: map[lane.Pos]*backqueuedRead{}}
	case reservedForWrite:
		bq, ok := o.reservation.backqueueReaders[lanePos]
		if !ok {
			panic(fmt.Sprintf("provider: no backqueued read reservation on lane %v to remove", lanePos))
		}
		delete(bq.batch.nodes, subscriber)
		if len(bq.batch.nodes) == 0 {
			delete(o.reservation.backqueueReaders, lanePos)
		}
	}
}

// ReserveWriteAsync occupies the provider for an async write on lanePos,
// returning the mainline (synchronous) consumers that must be notified of
// pending contention. It panics if another async write already occupies
// the provider, mirroring the invariant that only one writer reservation
// can exist at a time.
func (o *Object) ReserveWriteAsync(lanePos lane.Pos, value any, conf *job.BatchConf, commit barrier.CommitBarrier, reorderReservation func()) []*tree.Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reservation.kind != reservedForRead {
		panic("provider: a second async writer cannot reserve while one is already occupying this provider")
	}
	if o.reservation.backqueueWriter != nil {
		panic("provider: a second async writer cannot backqueue while one is already waiting")
	}
	mainline := make([]*tree.Node, 0, len(o.consumers))
	for n := range o.consumers {
		mainline = append(mainline, n)
	}
	w := writer{lanePos: lanePos, batchID: conf.ID, priority: conf.Priority, value: value}
	if len(o.reservation.readers) == 0 {
		o.reservation = reservation{kind: reservedForWrite, writer: &w, backqueueReaders: map[lane.Pos]*backqueuedRead{}}
	} else {
		o.reservation.backqueueWriter = &backqueuedWriter{writer: w, barrier: commit}
		reorderReservation()
	}
	return mainline
}

// UnreserveWriteAsync releases the async write reservation on lanePos that
// currently occupies the provider, restoring the read reservations that
// were backqueued behind it. It panics unless lanePos is that occupying
// writer; a writer backqueued behind read reservations is not handled here.
func (o *Object) UnreserveWriteAsync(lanePos lane.Pos) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reservation.kind != reservedForWrite || o.reservation.writer.lanePos != lanePos {
		panic("provider: no matching async write reservation to remove")
	}
	readers := make(map[lane.Pos]*readingBatch, len(o.reservation.backqueueReaders))
	for lp, bq := range o.reservation.backqueueReaders {
		readers[lp] = bq.batch
	}
	o.reservation = reservation{kind: reservedForRead, readers: readers}
}

// RegisterRead adds subscriber to the mainline consumer set and, if a
// writer currently occupies or is backqueued against the provider, returns
// its lane so the caller can detect contention.
func (o *Object) RegisterRead(subscriber *tree.Node) (lane.Pos, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumers[subscriber] = struct{}{}
	return o.occupyingWriterLane()
}

func (o *Object) occupyingWriterLane() (lane.Pos, bool) {
	switch o.reservation.kind {
	case reservedForRead:
		if o.reservation.backqueueWriter != nil {
			return o.reservation.backqueueWriter.writer.lanePos, true
		}
	case reservedForWrite:
		return o.reservation.writer.lanePos, true
	}
	return 0, false
}

// RegisterReservedRead promotes subscriber from a reserved-lane read into a
// registered mainline consumer, removing it from the lane's reservation.
// It panics if called while the provider is reserved for write, since a
// reserved read can never be promoted to mainline while a write occupies
// the provider outright.
func (o *Object) RegisterReservedRead(subscriber *tree.Node, lanePos lane.Pos) (lane.Pos, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumers[subscriber] = struct{}{}
	if o.reservation.kind == reservedForWrite {
		panic("provider: cannot register a reserved read while the provider is occupied for write")
	}
	if batch, ok := o.reservation.readers[lanePos]; ok {
		delete(batch.nodes, subscriber)
		if len(batch.nodes) == 0 {
			delete(o.reservation.readers, lanePos)
		}
	}
	return o.occupyingWriterLane()
}

// UnregisterRead removes subscriber from the mainline consumer set.
func (o *Object) UnregisterRead(subscriber *tree.Node) (lane.Pos, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.consumers, subscriber)
	return o.occupyingWriterLane()
}

// ContendingReaders lists every reader that must be notified after a
// synchronous write: the mainline consumers, any non-mainline readers
// still holding a reserved-read lane, and any async lanes whose reservation
// this write tore down and which must therefore be cancelled or reordered.
type ContendingReaders struct {
	Mainline    []*tree.Node
	NonMainline []NonMainlineReader
	Invalidated []lane.Pos
}

// NonMainlineReader pairs a reserved-read subscriber with the lane it
// reserved.
type NonMainlineReader struct {
	Lane lane.Pos
	Node *tree.Node
}

// WriteSync commits value immediately: a synchronous write always wins
// contention, per §7.5 (a documented contention path, not an invariant
// violation, so unlike the other reservation methods it never panics on a
// busy provider). If the provider is reserved for read, every current read
// reservation is reported as a non-mainline contending reader, and any
// backqueued writer is invalidated (its lane is reported in Invalidated so
// the scheduler cancels it, and its commit-barrier clone is released).
// If the provider is reserved for write — an async lane mid-write — that
// writer's lane is invalidated and every read backqueued behind it is
// reported as a non-mainline contending reader, since it was waiting on a
// write that will now never land. Either way the provider is left in a
// clean reserved-for-read state afterward.
func (o *Object) WriteSync(value any) ContendingReaders {
	o.mu.Lock()
	mainline := make([]*tree.Node, 0, len(o.consumers))
	for n := range o.consumers {
		mainline = append(mainline, n)
	}

	var nonMainline []NonMainlineReader
	var invalidated []lane.Pos

	switch o.reservation.kind {
	case reservedForRead:
		for lanePos, batch := range o.reservation.readers {
			for n := range batch.nodes {
				nonMainline = append(nonMainline, NonMainlineReader{Lane: lanePos, Node: n})
			}
		}
		if bq := o.reservation.backqueueWriter; bq != nil {
			invalidated = append(invalidated, bq.writer.lanePos)
			bq.barrier.Release()
		}
		o.reservation = reservation{kind: reservedForRead, readers: o.reservation.readers, backqueueWriter: nil}

	case reservedForWrite:
		invalidated = append(invalidated, o.reservation.writer.lanePos)
		readers := make(map[lane.Pos]*readingBatch, len(o.reservation.backqueueReaders))
		for lanePos, bq := range o.reservation.backqueueReaders {
			for n := range bq.batch.nodes {
				nonMainline = append(nonMainline, NonMainlineReader{Lane: lanePos, Node: n})
			}
			readers[lanePos] = bq.batch
			bq.barrier.Release()
		}
		o.reservation = reservation{kind: reservedForRead, readers: readers}
	}
	o.mu.Unlock()

	o.valueMu.Lock()
	o.value = value
	o.valueMu.Unlock()

	return ContendingReaders{Mainline: mainline, NonMainline: nonMainline, Invalidated: invalidated}
}

// OccupyingWriter returns the lane currently occupying or backqueued to
// occupy this provider for a write, if any.
func (o *Object) OccupyingWriter() (lane.Pos, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.occupyingWriterLane()
}

// CommitAsyncWrite finalizes a previously reserved async write for lanePos
// and batchID, installing its value and restoring whatever reads were
// backqueued behind it.
func (o *Object) CommitAsyncWrite(lanePos lane.Pos, batchID job.BatchID) {
	o.mu.Lock()
	if o.reservation.kind != reservedForWrite {
		o.mu.Unlock()
		panic("provider: no reserved write to commit")
	}
	w := o.reservation.writer
	if w.lanePos != lanePos || w.batchID != batchID {
		o.mu.Unlock()
		panic("provider: committed async write does not match the reserved lane/batch")
	}
	readers := make(map[lane.Pos]*readingBatch, len(o.reservation.backqueueReaders))
	for lp, bq := range o.reservation.backqueueReaders {
		bq.barrier.Release()
		readers[lp] = bq.batch
	}
	o.reservation = reservation{kind: reservedForRead, readers: readers}
	o.mu.Unlock()

	o.valueMu.Lock()
	o.value = w.value
	o.valueMu.Unlock()
}

// Consumers returns a snapshot of the mainline consumer set.
func (o *Object) Consumers() []*tree.Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*tree.Node, 0, len(o.consumers))
	for n := range o.consumers {
		out = append(out, n)
	}
	return out
}
