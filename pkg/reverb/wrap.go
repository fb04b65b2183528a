package reverb

import (
	"reflect"
	"sync"
)

// variant selects the capability of a wrapper: whether writes are allowed
// and whether nested containers are wrapped on read.
type variant uint8

const (
	variantMutable variant = iota
	variantMutableShallow
	variantReadonly
	variantReadonlyShallow

	variantCount
)

// variantPolicy is the single place the four capabilities are defined.
var variantPolicy = [variantCount]struct {
	readonly bool
	shallow  bool
	name     string
}{
	variantMutable:         {readonly: false, shallow: false, name: "mutable"},
	variantMutableShallow:  {readonly: false, shallow: true, name: "mutable-shallow"},
	variantReadonly:        {readonly: true, shallow: false, name: "readonly"},
	variantReadonlyShallow: {readonly: true, shallow: true, name: "readonly-shallow"},
}

func (v variant) readonly() bool { return variantPolicy[v].readonly }
func (v variant) shallow() bool  { return variantPolicy[v].shallow }
func (v variant) String() string { return variantPolicy[v].name }

// nested returns the variant used when a deep wrapper wraps a child
// container read through it: mutability follows the parent, depth resets
// to deep.
func (v variant) nested() variant {
	if v.readonly() {
		return variantReadonly
	}
	return variantMutable
}

// objectEntry is the cache record for one raw map. All wrapper variants of
// the same raw share the entry, so they share one source ID (dependencies
// recorded through one wrapper are notified by writes through another) and
// one lock guarding the raw map.
type objectEntry struct {
	id       uint64
	mu       *sync.RWMutex
	wrappers [variantCount]*Object
}

// sliceKey identifies a slice view: the backing array plus the visible
// length. Two slices over the same array with different lengths are
// different views and get different wrappers.
type sliceKey struct {
	ptr uintptr
	len int
}

// listEntry is the cache record for one raw slice view.
type listEntry struct {
	id       uint64
	mu       *sync.RWMutex
	wrappers [variantCount]*List
}

// Wrap returns a tracked, deeply wrapping view of v.
//
// If v is a map[string]any it becomes (or is found in the cache as) an
// *Object; a []any becomes a *List. Nested maps and slices read through the
// wrapper are wrapped the same way, lazily. Anything else, including nil,
// is returned unchanged: scalars cannot be intercepted, use Box for those.
//
// Wrap is idempotent and identity-caching: wrapping the same raw container
// twice returns the identical wrapper, and wrapping an existing wrapper of
// the same capability returns it as-is. Wrapping a read-only wrapper
// returns the read-only wrapper unchanged; a mutable view of read-only
// state cannot be obtained.
func (e *Engine) Wrap(v any) any {
	return e.wrapAs(v, variantMutable)
}

// WrapShallow is Wrap without nested wrapping: reads return inner maps and
// slices raw, so only top-level keys are tracked.
func (e *Engine) WrapShallow(v any) any {
	return e.wrapAs(v, variantMutableShallow)
}

// WrapReadonly returns a deeply read-only view of v. Reads are not recorded
// as dependencies; writes are discarded and reported through the warning
// channel. The same raw container can also be wrapped mutably, and both
// views share the raw data.
func (e *Engine) WrapReadonly(v any) any {
	return e.wrapAs(v, variantReadonly)
}

// WrapShallowReadonly is WrapReadonly applied to the top level only: nested
// containers read through the wrapper are returned raw and writable.
func (e *Engine) WrapShallowReadonly(v any) any {
	return e.wrapAs(v, variantReadonlyShallow)
}

func (e *Engine) wrapAs(v any, vr variant) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *Object:
		return e.rewrapObject(t, vr)
	case *List:
		return e.rewrapList(t, vr)
	case *Box:
		return t
	case map[string]any:
		return e.objectFor(t, vr)
	case []any:
		return e.listFor(t, vr)
	default:
		return v
	}
}

// rewrapObject applies the wrapper-on-wrapper rules: same capability returns
// the same instance, a read-only view of a mutable wrapper shares its raw,
// and a read-only wrapper never loosens back to mutable.
func (e *Engine) rewrapObject(o *Object, vr variant) any {
	if o.variant == vr {
		return o
	}
	if !vr.readonly() && o.variant.readonly() {
		return o
	}
	return e.objectFor(o.raw, vr)
}

func (e *Engine) rewrapList(l *List, vr variant) any {
	if l.variant == vr {
		return l
	}
	if !vr.readonly() && l.variant.readonly() {
		return l
	}
	return e.listFor(l.raw, vr)
}

// wrapNested wraps a container value read through a deep wrapper.
func (e *Engine) wrapNested(v any, parent variant) any {
	switch v.(type) {
	case map[string]any, []any:
		return e.wrapAs(v, parent.nested())
	default:
		return v
	}
}

// objectFor returns the wrapper of raw under vr, creating the cache entry on
// first contact with raw. The entry, and with it the source ID, lives until
// the engine is closed; long-lived engines wrapping unbounded numbers of
// maps should expect the cache to grow accordingly.
func (e *Engine) objectFor(raw map[string]any, vr variant) *Object {
	key := reflect.ValueOf(raw).Pointer()

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	entry, ok := e.objectCache[key]
	if !ok {
		entry = &objectEntry{id: nextID(), mu: &sync.RWMutex{}}
		e.objectCache[key] = entry
	}
	if entry.wrappers[vr] == nil {
		entry.wrappers[vr] = &Object{
			engine:  e,
			id:      entry.id,
			variant: vr,
			raw:     raw,
			mu:      entry.mu,
		}
	}
	return entry.wrappers[vr]
}

// listFor is objectFor for slice views.
func (e *Engine) listFor(raw []any, vr variant) *List {
	key := sliceKey{ptr: reflect.ValueOf(raw).Pointer(), len: len(raw)}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	entry, ok := e.listCache[key]
	if !ok {
		entry = &listEntry{id: nextID(), mu: &sync.RWMutex{}}
		e.listCache[key] = entry
	}
	if entry.wrappers[vr] == nil {
		entry.wrappers[vr] = &List{
			engine:  e,
			id:      entry.id,
			variant: vr,
			raw:     raw,
			mu:      entry.mu,
		}
	}
	return entry.wrappers[vr]
}

// unwrapIncoming strips a wrapper being written into deep tracked state down
// to its raw container, so raw state never holds wrappers. Shallow and
// read-only wrappers are kept as-is: storing them preserves their weaker
// capability when read back.
func unwrapIncoming(v any) any {
	switch t := v.(type) {
	case *Object:
		if t.variant.shallow() || t.variant.readonly() {
			return t
		}
		return t.raw
	case *List:
		if t.variant.shallow() || t.variant.readonly() {
			return t
		}
		return t.raw
	default:
		return v
	}
}

// IsTracked reports whether v is a tracked container wrapper.
func IsTracked(v any) bool {
	switch v.(type) {
	case *Object, *List:
		return true
	default:
		return false
	}
}

// IsReadonly reports whether v is a read-only wrapper.
func IsReadonly(v any) bool {
	switch t := v.(type) {
	case *Object:
		return t.variant.readonly()
	case *List:
		return t.variant.readonly()
	default:
		return false
	}
}

// IsShallow reports whether v is a shallow wrapper or a shallow box.
func IsShallow(v any) bool {
	switch t := v.(type) {
	case *Object:
		return t.variant.shallow()
	case *List:
		return t.variant.shallow()
	case *Box:
		return t.shallow
	default:
		return false
	}
}

// Raw returns the raw container behind a wrapper, or v itself if it is not
// wrapped. Reading through Raw bypasses tracking entirely.
func Raw(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.raw
	case *List:
		return t.raw
	default:
		return v
	}
}
