package canopy

import "sync"

// PoolEntry is embedded by values managed by a Pool. It records which pool
// owns the value and whether it is currently sitting on the free list, so a
// double or foreign recycle fails fast instead of corrupting the list.
type PoolEntry struct {
	owner any
	free  bool
}

func (e *PoolEntry) poolEntry() *PoolEntry { return e }

// Poolable is satisfied by any pointer type embedding PoolEntry.
type Poolable interface {
	poolEntry() *PoolEntry
}

// Pool is a free-list allocator for short-lived values. Obtain pops from the
// free list under the pool lock, allocating only when the list is empty;
// Recycle resets the value and pushes it back under the same lock. After
// warm-up a steady-state frame obtains and recycles without allocating.
//
// Growth is unbounded: a sustained backlog keeps allocating. Allocated reports
// the high-water mark for capacity planning.
type Pool[T Poolable] struct {
	mu        sync.Mutex
	free      []T
	alloc     func() T
	reset     func(T)
	allocated int
}

// NewPool creates a pool. alloc must return a fresh value; reset, if non-nil,
// clears a value before it goes back on the free list.
func NewPool[T Poolable](alloc func() T, reset func(T)) *Pool[T] {
	if alloc == nil {
		panic("canopy: pool requires an alloc func")
	}
	return &Pool[T]{alloc: alloc, reset: reset}
}

// Warm preallocates n values onto the free list.
func (p *Pool[T]) Warm(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cap(p.free)-len(p.free) < n {
		grown := make([]T, len(p.free), len(p.free)+n)
		copy(grown, p.free)
		p.free = grown
	}
	for i := 0; i < n; i++ {
		v := p.alloc()
		e := v.poolEntry()
		e.owner = p
		e.free = true
		p.allocated++
		p.free = append(p.free, v)
	}
}

// Obtain returns a value from the free list, allocating if it is empty.
func (p *Pool[T]) Obtain() T {
	p.mu.Lock()
	var v T
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
	} else {
		v = p.alloc()
		p.allocated++
	}
	e := v.poolEntry()
	e.owner = p
	e.free = false
	p.mu.Unlock()
	return v
}

// Recycle returns v to the free list. Panics if v is already free or was
// obtained from a different pool. v must not be read after Recycle returns.
func (p *Pool[T]) Recycle(v T) {
	e := v.poolEntry()
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.owner != any(p) {
		panic("canopy: recycle into a pool that does not own the value")
	}
	if e.free {
		panic("canopy: value recycled twice")
	}
	if p.reset != nil {
		p.reset(v)
	}
	e.free = true
	p.free = append(p.free, v)
}

// Free returns the number of values on the free list.
func (p *Pool[T]) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Allocated returns the number of values this pool has ever allocated.
func (p *Pool[T]) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}
