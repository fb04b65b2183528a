package reverb

import (
	"sort"
	"sync"
)

// iterateKey is the synthetic key recorded by structural reads (Keys, Len)
// and notified by structural writes (adding or deleting a key). The leading
// NUL keeps it out of the space of realistic user keys.
const iterateKey = "\x00iterate"

// Object is a tracked view of a map[string]any. Reads through the wrapper
// record dependencies for the active computation; writes notify the
// computations that depend on the written key.
//
// All wrapper variants of one raw map share a source identity: a write
// through the mutable wrapper re-runs computations that read through the
// shallow wrapper, and vice versa. Writes directly to the raw map bypass
// tracking and are not observed.
type Object struct {
	engine  *Engine
	id      uint64
	variant variant
	raw     map[string]any

	// mu guards the raw map and is shared by every wrapper of it.
	mu *sync.RWMutex
}

// Get returns the value stored under key, recording the read as a
// dependency of the active computation. Reading an absent key records it
// too, so a later Set of that key re-runs the reader.
//
// Deep variants wrap nested maps and slices before returning them and read
// through a stored *Box transparently; shallow variants return stored
// values untouched. Read-only variants do not record.
func (o *Object) Get(key string) any {
	o.mu.RLock()
	v, ok := o.raw[key]
	o.mu.RUnlock()

	if !o.variant.readonly() {
		o.engine.record(o.id, key)
	}

	if !ok {
		return nil
	}
	if o.variant.shallow() {
		return v
	}
	if b, isBox := v.(*Box); isBox {
		return b.Value()
	}
	return o.engine.wrapNested(v, o.variant)
}

// Set stores value under key and notifies dependents. Reports whether the
// write was applied.
//
// On read-only variants the write is discarded, reported through the
// warning channel, and Set returns false. On deep variants an incoming
// mutable wrapper is stored as its raw container, and writing a plain value
// over a stored *Box assigns into the box instead of replacing it.
//
// Overwriting an existing key with the same value (NaN equal to NaN, +0 and
// -0 distinct) applies the write but notifies nothing. Adding a new key
// additionally notifies structural readers (Keys, Len).
func (o *Object) Set(key string, value any) bool {
	if o.variant.readonly() {
		o.engine.violation("reverb: set of key %q on a read-only object was discarded", key)
		return false
	}

	if !o.variant.shallow() {
		value = unwrapIncoming(value)
	}

	o.mu.Lock()
	old, existed := o.raw[key]

	if !o.variant.shallow() && existed {
		if b, isBox := old.(*Box); isBox {
			if _, incomingBox := value.(*Box); !incomingBox {
				o.mu.Unlock()
				b.Set(value)
				return true
			}
		}
	}

	changed := !existed || !sameValue(old, value)
	if changed {
		o.raw[key] = value
	}
	o.mu.Unlock()

	if changed {
		o.engine.notify(o.id, key)
		if !existed {
			o.engine.notify(o.id, iterateKey)
		}
	}
	return true
}

// Has reports whether key is present, recording the read like Get.
func (o *Object) Has(key string) bool {
	o.mu.RLock()
	_, ok := o.raw[key]
	o.mu.RUnlock()

	if !o.variant.readonly() {
		o.engine.record(o.id, key)
	}
	return ok
}

// Delete removes key and notifies both the key's dependents and structural
// readers. Reports whether the key existed. Deleting through a read-only
// variant is discarded like Set.
func (o *Object) Delete(key string) bool {
	if o.variant.readonly() {
		o.engine.violation("reverb: delete of key %q on a read-only object was discarded", key)
		return false
	}

	o.mu.Lock()
	_, existed := o.raw[key]
	if existed {
		delete(o.raw, key)
	}
	o.mu.Unlock()

	if existed {
		o.engine.notify(o.id, key)
		o.engine.notify(o.id, iterateKey)
	}
	return existed
}

// Keys returns the object's keys in sorted order. The read is recorded
// structurally: adding or deleting any key re-runs the computation, writing
// an existing key does not.
func (o *Object) Keys() []string {
	o.mu.RLock()
	keys := make([]string, 0, len(o.raw))
	for k := range o.raw {
		keys = append(keys, k)
	}
	o.mu.RUnlock()
	sort.Strings(keys)

	if !o.variant.readonly() {
		o.engine.record(o.id, iterateKey)
	}
	return keys
}

// Len returns the number of keys, recorded structurally like Keys.
func (o *Object) Len() int {
	o.mu.RLock()
	n := len(o.raw)
	o.mu.RUnlock()

	if !o.variant.readonly() {
		o.engine.record(o.id, iterateKey)
	}
	return n
}

// Raw returns the underlying map. Access through it is untracked.
func (o *Object) Raw() map[string]any {
	return o.raw
}

// ID returns the source identity shared by all wrappers of this raw map.
func (o *Object) ID() uint64 {
	return o.id
}
