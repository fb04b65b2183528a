package reverb

import (
	"math"
	"reflect"
)

// sameValue reports whether a and b are the same value for change detection.
// It differs from == in two ways that matter for reactive state: NaN is equal
// to itself (repeatedly writing NaN must not notify forever), and +0 and -0
// are distinct (they format and divide differently, so replacing one with the
// other is a real change).
//
// Values of different dynamic types are never the same. Maps, slices and
// funcs compare by identity rather than contents; other uncomparable types
// are always treated as changed.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		return sameFloat(av, bv)
	case float32:
		bv, ok := b.(float32)
		if !ok {
			return false
		}
		return sameFloat(float64(av), float64(bv))
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}

	switch ra.Kind() {
	case reflect.Map, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		// A slice is the same value only if it is the same view: same
		// backing array, length and capacity.
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len() && ra.Cap() == rb.Cap()
	}

	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

// sameFloat implements the NaN and signed-zero rules for floats.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if a == 0 && b == 0 {
		return math.Signbit(a) == math.Signbit(b)
	}
	return a == b
}
