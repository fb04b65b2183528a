package reverb

import (
	"strconv"
	"sync"
)

// List is a tracked view of a []any. Elements are addressed by index and
// tracked under the index's decimal string, so writing one element re-runs
// only the computations that read that element.
//
// A List is a fixed-length view: it shares the backing array of the slice it
// wraps and writes elements in place, but never grows or shrinks. Growth is
// expressed one level up, by storing a longer slice into the parent object,
// which notifies the parent key and hands readers a fresh view.
type List struct {
	engine  *Engine
	id      uint64
	variant variant
	raw     []any

	// mu guards the backing array and is shared by every wrapper of this view.
	mu *sync.RWMutex
}

// indexKey is the graph key for element i.
func indexKey(i int) string {
	return strconv.Itoa(i)
}

// Get returns the element at index i, recording the read as a dependency of
// the active computation. Deep variants wrap nested maps and slices before
// returning them. Out-of-range reads return nil.
func (l *List) Get(i int) any {
	if i < 0 || i >= len(l.raw) {
		return nil
	}

	l.mu.RLock()
	v := l.raw[i]
	l.mu.RUnlock()

	if !l.variant.readonly() {
		l.engine.record(l.id, indexKey(i))
	}

	if l.variant.shallow() {
		return v
	}
	return l.engine.wrapNested(v, l.variant)
}

// Set writes the element at index i in place and notifies its dependents.
// Reports whether the write was applied: out-of-range writes do nothing,
// and writes through a read-only variant are discarded and reported through
// the warning channel.
//
// Like Object.Set, deep variants store incoming mutable wrappers as their
// raw containers, and overwriting an element with the same value notifies
// nothing.
func (l *List) Set(i int, value any) bool {
	if l.variant.readonly() {
		l.engine.violation("reverb: set of index %d on a read-only list was discarded", i)
		return false
	}
	if i < 0 || i >= len(l.raw) {
		return false
	}

	if !l.variant.shallow() {
		value = unwrapIncoming(value)
	}

	l.mu.Lock()
	old := l.raw[i]
	changed := !sameValue(old, value)
	if changed {
		l.raw[i] = value
	}
	l.mu.Unlock()

	if changed {
		l.engine.notify(l.id, indexKey(i))
	}
	return true
}

// Len returns the view's length. Recorded structurally for symmetry with
// Object.Len, though a view's length never changes.
func (l *List) Len() int {
	if !l.variant.readonly() {
		l.engine.record(l.id, iterateKey)
	}
	return len(l.raw)
}

// Raw returns the underlying slice. Access through it is untracked.
func (l *List) Raw() []any {
	return l.raw
}

// ID returns the source identity shared by all wrappers of this view.
func (l *List) ID() uint64 {
	return l.id
}
