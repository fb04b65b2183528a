//go:build property
// +build property

package reverb

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBoxProperties tests box change detection and notification properties
func TestBoxProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: Writing the stored value again never notifies, for any value
	properties.Property("same-value writes never notify", prop.ForAll(
		func(v float64) bool {
			e := New()
			defer e.Close()
			b := e.Box(v)

			runs := 0
			e.RunComputation(func() any {
				runs++
				_ = b.Value()
				return nil
			})

			b.Set(v)
			return runs == 1
		},
		gen.OneGenOf(
			gen.Float64(),
			gen.OneConstOf(math.NaN(), math.Inf(1), math.Inf(-1), 0.0),
		),
	))

	// Property: After any sequence of writes, reading returns the last value
	properties.Property("last write wins", prop.ForAll(
		func(values []int) bool {
			if len(values) == 0 {
				return true
			}

			e := New()
			defer e.Close()
			b := e.Box(values[0])
			for _, v := range values[1:] {
				b.Set(v)
			}

			return b.Value().(int) == values[len(values)-1]
		},
		gen.SliceOfN(10, gen.IntRange(-100, 100)),
	))

	// Property: A subscriber re-runs once per value change, and never for
	// writes that repeat the current value
	properties.Property("one run per distinct change", prop.ForAll(
		func(values []int) bool {
			e := New()
			defer e.Close()
			b := e.Box(0)

			runs := 0
			e.RunComputation(func() any {
				runs++
				_ = b.Value()
				return nil
			})

			expected := 1
			current := 0
			for _, v := range values {
				if v != current {
					expected++
					current = v
				}
				b.Set(v)
			}

			return runs == expected
		},
		gen.SliceOfN(20, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

// TestObjectProperties tests tracked object properties
func TestObjectProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: Writing one key never re-runs a computation reading another
	properties.Property("key isolation", prop.ForAll(
		func(readKey, writeKey string, v int) bool {
			if readKey == writeKey {
				return true // Only distinct keys isolate
			}

			e := New()
			defer e.Close()
			state := e.Wrap(map[string]any{readKey: 0, writeKey: 0}).(*Object)

			runs := 0
			e.RunComputation(func() any {
				runs++
				_ = state.Get(readKey)
				return nil
			})

			state.Set(writeKey, v)
			return runs == 1
		},
		gen.RegexMatch(`^[a-z]{1,6}$`),
		gen.RegexMatch(`^[a-z]{1,6}$`),
		gen.IntRange(1, 100),
	))

	// Property: Wrapping the same map repeatedly returns the same wrapper
	properties.Property("wrapper identity is stable", prop.ForAll(
		func(keys []string) bool {
			m := make(map[string]any, len(keys))
			for i, k := range keys {
				m[k] = i
			}

			e := New()
			defer e.Close()

			w := e.Wrap(m)
			for i := 0; i < 3; i++ {
				if e.Wrap(m) != w {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.RegexMatch(`^[a-z]{1,6}$`)),
	))

	// Property: Writes through a read-only wrapper never change the raw map
	properties.Property("read-only writes never mutate", prop.ForAll(
		func(key string, v int) bool {
			m := map[string]any{key: 0}
			e := New(WithWarnHandler(func(string) {}))
			defer e.Close()

			ro := e.WrapReadonly(m).(*Object)
			ro.Set(key, v)
			ro.Delete(key)

			return m[key] == 0
		},
		gen.RegexMatch(`^[a-z]{1,6}$`),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}

// TestGraphProperties tests dependency graph bookkeeping properties
func TestGraphProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: A computation reading n distinct keys creates n locations
	properties.Property("locations match distinct keys read", prop.ForAll(
		func(keys []string) bool {
			distinct := make(map[string]struct{})
			m := make(map[string]any)
			for _, k := range keys {
				distinct[k] = struct{}{}
				m[k] = 0
			}

			e := New()
			defer e.Close()
			state := e.Wrap(m).(*Object)

			e.RunComputation(func() any {
				for _, k := range keys {
					_ = state.Get(k)
				}
				return nil
			})

			return e.Stats().Locations == len(distinct)
		},
		gen.SliceOfN(8, gen.RegexMatch(`^[a-z]{1,3}$`)),
	))

	// Property: A derived value always agrees with its source after any
	// write sequence
	properties.Property("derived tracks source", prop.ForAll(
		func(values []int) bool {
			e := New()
			defer e.Close()
			b := e.Box(0)
			d := Derive(e, func() any { return b.Value().(int) * 2 })

			for _, v := range values {
				b.Set(v)
				if d.Value().(int) != v*2 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.IntRange(-100, 100)),
	))

	properties.TestingRun(t)
}
