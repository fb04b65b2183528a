package reverb

import "testing"

func TestListGetSet(t *testing.T) {
	e := New()
	defer e.Close()
	l := e.Wrap([]any{"a", "b", "c"}).(*List)

	if got := l.Get(0).(string); got != "a" {
		t.Errorf("expected %q, got %q", "a", got)
	}
	if l.Len() != 3 {
		t.Errorf("expected length 3, got %d", l.Len())
	}

	if !l.Set(1, "B") {
		t.Error("expected in-range Set to succeed")
	}
	if got := l.Get(1).(string); got != "B" {
		t.Errorf("expected %q, got %q", "B", got)
	}
}

func TestListIndexPrecision(t *testing.T) {
	e := New()
	defer e.Close()
	l := e.Wrap([]any{1, 2, 3}).(*List)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = l.Get(0)
		return nil
	})

	l.Set(1, 20)
	if runs != 1 {
		t.Errorf("write to an unread index should not re-run, got %d runs", runs)
	}

	l.Set(0, 10)
	if runs != 2 {
		t.Errorf("expected re-run after write to read index, got %d runs", runs)
	}

	// Same value again is a no-op.
	l.Set(0, 10)
	if runs != 2 {
		t.Errorf("same-value write should not notify, got %d runs", runs)
	}
}

func TestListOutOfRange(t *testing.T) {
	e := New()
	defer e.Close()
	l := e.Wrap([]any{1}).(*List)

	if l.Get(5) != nil {
		t.Error("expected nil for out-of-range read")
	}
	if l.Get(-1) != nil {
		t.Error("expected nil for negative index")
	}
	if l.Set(5, 9) {
		t.Error("expected out-of-range write to report failure")
	}
	if l.Set(-1, 9) {
		t.Error("expected negative-index write to report failure")
	}
}

func TestListSharesBackingArray(t *testing.T) {
	e := New()
	defer e.Close()
	s := []any{1, 2, 3}
	l := e.Wrap(s).(*List)

	l.Set(0, 99)
	if s[0] != 99 {
		t.Errorf("expected write through the view to reach the original slice, got %v", s[0])
	}

	s[1] = 50
	if got := l.Get(1).(int); got != 50 {
		t.Errorf("expected raw write to be visible through the view, got %d", got)
	}
}

func TestListNestedWrapping(t *testing.T) {
	e := New()
	defer e.Close()
	l := e.Wrap([]any{
		map[string]any{"name": "ada"},
		[]any{1, 2},
	}).(*List)

	user, ok := l.Get(0).(*Object)
	if !ok {
		t.Fatal("expected nested map element to come back wrapped")
	}

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = l.Get(0).(*Object).Get("name")
		return nil
	})

	user.Set("name", "grace")
	if runs != 2 {
		t.Errorf("expected nested write to re-run reader, got %d runs", runs)
	}

	if _, ok := l.Get(1).(*List); !ok {
		t.Error("expected nested slice element to come back wrapped")
	}

	// Shallow lists return elements raw.
	raw := []any{map[string]any{"x": 1}}
	sl := e.WrapShallow(raw).(*List)
	if _, ok := sl.Get(0).(map[string]any); !ok {
		t.Error("expected shallow list to return the raw element")
	}
}

func TestListReadonly(t *testing.T) {
	var warnings []string
	e := New(WithWarnHandler(func(msg string) {
		warnings = append(warnings, msg)
	}))
	defer e.Close()

	l := e.WrapReadonly([]any{1, 2}).(*List)

	if l.Set(0, 9) {
		t.Error("expected Set on readonly list to report failure")
	}
	if got := l.Get(0).(int); got != 1 {
		t.Errorf("expected element unchanged after readonly write, got %d", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}

	if !IsReadonly(l) {
		t.Error("expected IsReadonly for readonly list")
	}
}

func TestListGrowthThroughParent(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"items": []any{1, 2}}).(*Object)

	var seen int
	runs := 0
	e.RunComputation(func() any {
		runs++
		items := state.Get("items").(*List)
		seen = items.Len()
		return nil
	})

	if seen != 2 {
		t.Fatalf("expected initial length 2, got %d", seen)
	}

	// Views are fixed length; growth happens by storing a longer slice.
	grown := append([]any{}, state.Raw()["items"].([]any)...)
	grown = append(grown, 3)
	state.Set("items", grown)

	if runs != 2 {
		t.Errorf("expected parent write to re-run reader, got %d runs", runs)
	}
	if seen != 3 {
		t.Errorf("expected reader to see new length 3, got %d", seen)
	}
}

func TestListStoresWrappersRaw(t *testing.T) {
	e := New()
	defer e.Close()
	l := e.Wrap([]any{nil}).(*List)

	inner := map[string]any{"v": 1}
	l.Set(0, e.Wrap(inner))

	if _, ok := l.Raw()[0].(map[string]any); !ok {
		t.Errorf("expected raw map in storage, got %T", l.Raw()[0])
	}
}
