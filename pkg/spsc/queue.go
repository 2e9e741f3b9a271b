// Package spsc provides a lock-free single-producer/single-consumer ring
// buffer. Exactly one goroutine may produce and exactly one may consume;
// both sides run without locks, blocking or syscalls.
//
// The producer writes in two phases: NextToWrite returns the slot to fill,
// CommitWrite publishes it. The consumer mirrors this with Peek and
// CommitRead. The element count is the only cross-goroutine state; the Go
// atomics on it order the slot writes before the consumer can observe them.
package spsc

import (
	"fmt"
	"sync/atomic"

	"github.com/meridian-exchange/matching-engine/pkg/errors"
)

// Queue is a fixed-capacity SPSC ring buffer of T.
type Queue[T any] struct {
	store []T

	nextWriteIndex int // producer-owned
	nextReadIndex  int // consumer-owned
	numElements    atomic.Int64
}

// NewQueue creates a Queue with the given fixed capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic(errors.NewTracer(fmt.Sprintf("queue capacity must be positive, got %d", capacity)))
	}

	return &Queue[T]{
		store: make([]T, capacity),
	}
}

// NextToWrite returns the slot the producer should fill next. The write is
// not visible to the consumer until CommitWrite. A full queue is a
// capacity-planning failure, not a recoverable condition.
func (q *Queue[T]) NextToWrite() *T {
	if q.numElements.Load() >= int64(len(q.store)) {
		panic(errors.NewTracer(fmt.Sprintf("queue overflow at capacity %d", len(q.store))))
	}
	return &q.store[q.nextWriteIndex]
}

// CommitWrite publishes the slot returned by the preceding NextToWrite.
func (q *Queue[T]) CommitWrite() {
	q.nextWriteIndex++
	if q.nextWriteIndex == len(q.store) {
		q.nextWriteIndex = 0
	}
	q.numElements.Add(1)
}

// Peek returns the oldest unconsumed element, or nil when the queue is
// empty. The slot stays valid until CommitRead.
func (q *Queue[T]) Peek() *T {
	if q.numElements.Load() == 0 {
		return nil
	}
	return &q.store[q.nextReadIndex]
}

// CommitRead releases the slot returned by the preceding Peek.
func (q *Queue[T]) CommitRead() {
	q.nextReadIndex++
	if q.nextReadIndex == len(q.store) {
		q.nextReadIndex = 0
	}
	q.numElements.Add(-1)
}

// Len returns the number of unconsumed elements.
func (q *Queue[T]) Len() int {
	return int(q.numElements.Load())
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.store)
}
