package kernel

import (
	"runtime"
	"sync/atomic"
)

// Ring is a fixed-size multi-producer, single-consumer queue. Host-side
// goroutines (serial, UI input) push into it; the scheduler drains it from
// inside a source. It never allocates after construction.
type Ring[T any] struct {
	_     [0]func() // prevent accidental copying.
	mask  uint32
	head  atomic.Uint32
	tail  atomic.Uint32
	seq   []atomic.Uint32
	slots []T
}

// NewRing returns a ring holding size elements, rounded up to a power of two.
func NewRing[T any](size int) *Ring[T] {
	n := uint32(1)
	for int(n) < size {
		n <<= 1
	}
	r := &Ring[T]{
		mask:  n - 1,
		seq:   make([]atomic.Uint32, n),
		slots: make([]T, n),
	}
	for i := range r.seq {
		r.seq[i].Store(uint32(i))
	}
	return r
}

func (r *Ring[T]) Cap() int { return len(r.slots) }

// Len is a best-effort count of queued elements.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// TryPush enqueues v, returning false if the ring is full.
func (r *Ring[T]) TryPush(v T) bool {
	for {
		head := r.head.Load()
		cell := head & r.mask
		seq := r.seq[cell].Load()
		switch {
		case seq == head:
			// Reserve the slot.
			if !r.head.CompareAndSwap(head, head+1) {
				continue
			}
			r.slots[cell] = v
			r.seq[cell].Store(head + 1)
			return true
		case int32(seq-head) < 0:
			return false
		}
	}
}

// Push enqueues v, spinning until there is room.
func (r *Ring[T]) Push(v T) {
	for !r.TryPush(v) {
		runtime.Gosched()
	}
}

// TryPop dequeues one element, returning false if empty.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	tail := r.tail.Load()
	cell := tail & r.mask
	if r.seq[cell].Load() != tail+1 {
		return zero, false
	}
	v := r.slots[cell]
	r.slots[cell] = zero
	r.tail.Store(tail + 1)
	r.seq[cell].Store(tail + r.mask + 1)
	return v, true
}

// Drain pops every queued element into fn.
func (r *Ring[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := r.TryPop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}
