// Package pool provides a fixed-capacity slab allocator. Slots are referenced
// by index rather than pointer so that pooled records can link to each other
// without owning references; NilIdx marks the absence of a link.
package pool

import (
	"fmt"

	"github.com/meridian-exchange/matching-engine/pkg/errors"
)

// NilIdx marks an empty slot reference.
const NilIdx int32 = -1

type slot[T any] struct {
	value T
	next  int32 // free-list link, only meaningful while the slot is free
	free  bool
}

// Pool is a fixed-capacity arena of T. All memory is allocated at
// construction; Alloc and Free are O(1) and never touch the heap.
// A Pool is owned by a single goroutine and is not safe for concurrent use.
type Pool[T any] struct {
	slots    []slot[T]
	freeHead int32
	inUse    int
}

// New creates a Pool holding up to capacity elements.
func New[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic(errors.NewTracer(fmt.Sprintf("pool capacity must be positive, got %d", capacity)))
	}

	p := &Pool[T]{
		slots:    make([]slot[T], capacity),
		freeHead: 0,
	}
	for i := range p.slots {
		p.slots[i].free = true
		p.slots[i].next = int32(i + 1)
	}
	p.slots[capacity-1].next = NilIdx

	return p
}

// Alloc returns the index of a zero-initialized slot. Exhaustion means the
// pool was sized below the system's declared capacity and aborts the process.
func (p *Pool[T]) Alloc() int32 {
	if p.freeHead == NilIdx {
		panic(errors.NewTracer(fmt.Sprintf("pool exhausted at capacity %d", len(p.slots))))
	}

	idx := p.freeHead
	s := &p.slots[idx]
	p.freeHead = s.next

	var zero T
	s.value = zero
	s.free = false
	p.inUse++

	return idx
}

// At resolves a slot index to its element.
func (p *Pool[T]) At(idx int32) *T {
	return &p.slots[idx].value
}

// Free returns a slot to the pool. Freeing a slot twice is a logic error
// and aborts.
func (p *Pool[T]) Free(idx int32) {
	s := &p.slots[idx]
	if s.free {
		panic(errors.NewTracer(fmt.Sprintf("double free of pool slot %d", idx)))
	}

	s.free = true
	s.next = p.freeHead
	p.freeHead = idx
	p.inUse--
}

// Cap returns the pool capacity.
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// InUse returns the number of slots currently allocated.
func (p *Pool[T]) InUse() int {
	return p.inUse
}
