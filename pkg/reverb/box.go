package reverb

import "sync"

// valueKey is the graph key for the single slot of boxes and derived values.
const valueKey = "value"

// Box is a tracked single-value slot. It holds scalars that containers
// cannot track, and it is the explicit way to opt a value out of a parent's
// deep wrapping (a box stored in a deep object is read and written through,
// not replaced).
//
// A box created by ToBox has no storage of its own: it is a live link to an
// object property, and reads and writes proxy through the object in both
// directions.
type Box struct {
	engine  *Engine
	id      uint64
	shallow bool

	// raw is the stored value in unwrapped form; display is what Value
	// returns, deep-wrapped when raw is a container and the box is not
	// shallow.
	raw     any
	display any
	mu      sync.RWMutex

	// obj and key form the live property link of a ToBox box.
	obj *Object
	key string
}

// Box creates a box holding v. Boxing an existing box returns it unchanged.
// Container values are stored raw and handed out deeply wrapped, like a
// value read from a deep object.
func (e *Engine) Box(v any) *Box {
	if b, ok := v.(*Box); ok {
		return b
	}
	b := &Box{engine: e, id: nextID()}
	b.raw, b.display = b.convert(v)
	return b
}

// BoxShallow creates a box that hands out its value exactly as stored,
// without deep wrapping. Boxing an existing box returns it unchanged.
func (e *Engine) BoxShallow(v any) *Box {
	if b, ok := v.(*Box); ok {
		return b
	}
	b := &Box{engine: e, id: nextID(), shallow: true}
	b.raw, b.display = b.convert(v)
	return b
}

// convert computes the stored and displayed forms of an incoming value.
// Shallow boxes, and incoming shallow or read-only wrappers, are stored and
// displayed as given; everything else is stored raw and displayed wrapped.
func (b *Box) convert(v any) (raw, display any) {
	if b.shallow || IsShallow(v) || IsReadonly(v) {
		return v, v
	}
	raw = Raw(v)
	return raw, b.engine.wrapAs(raw, variantMutable)
}

// Value returns the boxed value and records the read for the active
// computation. Linked boxes read through their object, so the dependency
// lands on the object's key.
func (b *Box) Value() any {
	if b.obj != nil {
		return b.obj.Get(b.key)
	}

	b.mu.RLock()
	v := b.display
	b.mu.RUnlock()

	b.engine.record(b.id, valueKey)
	return v
}

// Peek returns the boxed value without recording a dependency.
func (b *Box) Peek() any {
	if b.obj != nil {
		var v any
		b.engine.Untracked(func() {
			v = b.obj.Get(b.key)
		})
		return v
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.display
}

// Set stores a new value and notifies dependents. Writing a value that is
// the same as the stored one (NaN equal to NaN, +0 and -0 distinct, both
// compared in raw form) is a no-op. Linked boxes write through their object.
func (b *Box) Set(v any) {
	if b.obj != nil {
		b.obj.Set(b.key, v)
		return
	}

	raw, display := b.convert(v)

	b.mu.Lock()
	if sameValue(b.raw, raw) {
		b.mu.Unlock()
		return
	}
	b.raw = raw
	b.display = display
	b.mu.Unlock()

	b.engine.notify(b.id, valueKey)
}

// ID returns the box's source identity.
func (b *Box) ID() uint64 {
	return b.id
}

// IsBox reports whether v is a *Box.
func IsBox(v any) bool {
	_, ok := v.(*Box)
	return ok
}

// Unbox returns the value inside a box, recording the read, or v itself if
// it is not a box.
func Unbox(v any) any {
	if b, ok := v.(*Box); ok {
		return b.Value()
	}
	return v
}

// ToBox returns a box linked to one property of an object. Reading the box
// reads the property (dependencies land on the object's key) and writing
// the box writes the property, so the two stay in sync in both directions.
// If the property already holds a box, that box is returned instead.
func ToBox(o *Object, key string) *Box {
	o.mu.RLock()
	v := o.raw[key]
	o.mu.RUnlock()

	if b, ok := v.(*Box); ok {
		return b
	}
	return &Box{engine: o.engine, id: nextID(), obj: o, key: key}
}

// ToBoxes returns a linked box for every key currently in the object.
// The enumeration itself is untracked; use it to destructure an object into
// independently passable slots.
func ToBoxes(o *Object) map[string]*Box {
	o.mu.RLock()
	keys := make([]string, 0, len(o.raw))
	for k := range o.raw {
		keys = append(keys, k)
	}
	o.mu.RUnlock()

	out := make(map[string]*Box, len(keys))
	for _, k := range keys {
		out[k] = ToBox(o, k)
	}
	return out
}
