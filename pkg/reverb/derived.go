package reverb

import (
	"sync"
	"sync/atomic"
)

// Derived is a cached computation that is itself a tracked source. Reading
// it records a dependency like reading a box; when one of its own
// dependencies changes it only flips to dirty and notifies its dependents,
// deferring the recomputation until the next read. Chains of derived values
// therefore propagate staleness without recomputing anything until a value
// at the end of the chain is actually read.
type Derived[T any] struct {
	engine *Engine
	id     uint64

	// runner recomputes value and owns the upstream dependencies.
	// It is lazy, and its scheduler never runs it directly.
	runner *Runner

	// value is the cached result, valid while dirty is false.
	value T
	mu    sync.RWMutex

	// dirty starts true so the first read computes.
	dirty atomic.Bool

	// setter makes the derived writable; nil means writes are violations.
	setter func(T)
}

// Derive creates a derived value from a computation. The computation does
// not run until the first read.
//
//	total := reverb.Derive(e, func() int {
//	    return cart.Get("price").(int) * cart.Get("qty").(int)
//	})
func Derive[T any](e *Engine, get func() T) *Derived[T] {
	return newDerived(e, get, nil)
}

// DeriveWritable creates a derived value with a write path. Setting the
// value invokes set, which typically writes back to the underlying sources;
// the derived value itself stays a cache over get.
func DeriveWritable[T any](e *Engine, get func() T, set func(T)) *Derived[T] {
	return newDerived(e, get, set)
}

func newDerived[T any](e *Engine, get func() T, set func(T)) *Derived[T] {
	d := &Derived[T]{engine: e, id: nextID(), setter: set}
	d.dirty.Store(true)

	d.runner = e.RunComputation(func() any {
		v := get()
		d.mu.Lock()
		d.value = v
		d.mu.Unlock()
		return v
	}, Lazy(), WithLabel("derived"), WithScheduler(func(*Runner) {
		// Invalidate once and pass the wave on; recomputing waits for the
		// next read.
		if d.dirty.CompareAndSwap(false, true) {
			e.notify(d.id, valueKey)
		}
	}))

	return d
}

// Value returns the derived value, recomputing it first if a dependency
// changed since the last read, and records the read for the active
// computation. A panic in the computation propagates and leaves the derived
// value dirty, so the next read retries.
func (d *Derived[T]) Value() T {
	if d.dirty.Load() {
		d.runner.Run()
		d.dirty.Store(false)
	}

	d.engine.record(d.id, valueKey)

	d.mu.RLock()
	v := d.value
	d.mu.RUnlock()
	return v
}

// Peek returns the derived value without recording a dependency.
// Still recomputes if dirty.
func (d *Derived[T]) Peek() T {
	if d.dirty.Load() {
		d.runner.Run()
		d.dirty.Store(false)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

// SetValue writes through to the setter. Without one, the write is
// discarded and reported through the warning channel, like a write to a
// read-only object.
func (d *Derived[T]) SetValue(v T) {
	if d.setter == nil {
		d.engine.violation("reverb: write to a derived value without a setter was discarded")
		return
	}
	d.setter(v)
}

// Dispose detaches the derived value from its dependencies. Dependents are
// not notified; subsequent reads return the last cached value without
// recomputing (the zero value if it never computed).
func (d *Derived[T]) Dispose() {
	d.runner.Dispose()
}

// ID returns the derived value's source identity.
func (d *Derived[T]) ID() uint64 {
	return d.id
}
