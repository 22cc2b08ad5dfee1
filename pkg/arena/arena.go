// Package arena implements fixed-capacity object pools, the Go-native
// replacement for the design's intrusive free-list allocators (§3.9, §9):
// "object-pool allocators with raw pointers" become an arena of fixed
// capacity addressed by index-based handles, so a handle can never outlive
// the slice backing it and a stale handle is detected by generation
// mismatch rather than by dereferencing a dangling pointer.
package arena

import "github.com/ratchov/midish-sub000/pkg/errs"

// Handle addresses a slot in an Arena. The zero Handle is never issued by
// Alloc and can be used as a "no reference" sentinel.
type Handle struct {
	index int
	gen   uint32
}

// Valid reports whether h could possibly address a live slot (it does not
// by itself prove the slot is still alive — use Arena.Get's ok return for
// that).
func (h Handle) Valid() bool { return h.index != 0 }

type slot[T any] struct {
	val  T
	gen  uint32
	used bool
}

// Arena is a bounded pool of T, indexed by Handle. Capacity is fixed at
// construction: exhaustion is a programming fault (§9: "allocation failure
// is a program fault in this design"), not a recoverable error, matching
// the compile-time-sized free lists of the original pools.
type Arena[T any] struct {
	slots []slot[T]
	free  []int
}

// New creates an Arena with the given fixed capacity.
func New[T any](capacity int) *Arena[T] {
	// index 0 is reserved so the zero Handle means "unset"
	a := &Arena[T]{slots: make([]slot[T], capacity+1)}
	a.free = make([]int, 0, capacity)
	for i := capacity; i >= 1; i-- {
		a.free = append(a.free, i)
	}
	return a
}

// Alloc reserves a slot and returns its handle. Panics with a FaultError if
// the arena is exhausted.
func (a *Arena[T]) Alloc(v T) Handle {
	if len(a.free) == 0 {
		errs.Fault("arena exhausted (capacity %d)", len(a.slots)-1)
	}
	i := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.slots[i].val = v
	a.slots[i].used = true
	return Handle{index: i, gen: a.slots[i].gen}
}

// Get dereferences h. ok is false if h is stale (the slot was freed and
// possibly reused) or zero.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if h.index <= 0 || h.index >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return &s.val, true
}

// Free releases the slot addressed by h, bumping its generation so any
// handle still referencing it becomes stale.
func (a *Arena[T]) Free(h Handle) {
	if h.index <= 0 || h.index >= len(a.slots) {
		return
	}
	s := &a.slots[h.index]
	if !s.used || s.gen != h.gen {
		return
	}
	var zero T
	s.val = zero
	s.used = false
	s.gen++
	a.free = append(a.free, h.index)
}

// Len returns the number of currently allocated slots.
func (a *Arena[T]) Len() int { return len(a.slots) - 1 - len(a.free) }

// Cap returns the arena's fixed capacity.
func (a *Arena[T]) Cap() int { return len(a.slots) - 1 }
