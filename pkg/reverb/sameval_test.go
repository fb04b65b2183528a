package reverb

import (
	"math"
	"testing"
)

func TestSameValue(t *testing.T) {
	m := map[string]any{"x": 1}
	s := []any{1, 2}
	f := func() {}
	type point struct{ X, Y int }

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil both", nil, nil, true},
		{"nil left", nil, 1, false},
		{"nil right", 1, nil, false},
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"int vs int64", 1, int64(1), false},
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"equal bools", true, true, true},
		{"nan equals nan", math.NaN(), math.NaN(), true},
		{"nan vs number", math.NaN(), 1.0, false},
		{"plus zero equals plus zero", 0.0, 0.0, true},
		{"minus zero equals minus zero", math.Copysign(0, -1), math.Copysign(0, -1), true},
		{"plus zero vs minus zero", 0.0, math.Copysign(0, -1), false},
		{"float32 nan", float32(math.NaN()), float32(math.NaN()), true},
		{"float32 zero signs", float32(0), float32(math.Copysign(0, -1)), false},
		{"float64 vs float32", 1.0, float32(1.0), false},
		{"same map", m, m, true},
		{"equal-content maps", map[string]any{"x": 1}, map[string]any{"x": 1}, false},
		{"same slice", s, s, true},
		{"equal-content slices", []any{1, 2}, []any{1, 2}, false},
		{"slice vs shorter view", s, s[:1], false},
		{"same func", f, f, true},
		{"equal structs", point{1, 2}, point{1, 2}, true},
		{"different structs", point{1, 2}, point{1, 3}, false},
		{"same pointer", &m, &m, true},
	}

	for _, tt := range tests {
		if got := sameValue(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestSameValueUncomparable(t *testing.T) {
	type holder struct{ vals []int }
	a := holder{vals: []int{1}}

	// Struct types with slice fields cannot use ==; they always count
	// as changed.
	if sameValue(a, a) {
		t.Error("expected uncomparable structs to be treated as changed")
	}
}
