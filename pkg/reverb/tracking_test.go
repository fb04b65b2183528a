package reverb

import (
	"sync"
	"testing"
)

func TestTrackingPerGoroutine(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 1, "y": 2}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("x")

		// A read on another goroutine belongs to that goroutine's (empty)
		// stack, not to this computation.
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = state.Get("y")
		}()
		<-done
		return nil
	})

	state.Set("y", 20)
	if runs != 1 {
		t.Errorf("expected cross-goroutine read to not subscribe, got %d runs", runs)
	}

	state.Set("x", 10)
	if runs != 2 {
		t.Errorf("expected same-goroutine read to subscribe, got %d runs", runs)
	}
}

func TestTrackingNestedFramesRestore(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 1}).(*Object)
	d := Derive(e, func() any { return state.Get("x").(int) * 2 })

	outer := 0
	e.RunComputation(func() any {
		outer++
		// Reading the derived value runs its computation in a nested frame;
		// afterwards this frame must be active again for the direct read.
		_ = d.Value()
		_ = state.Get("x")
		return nil
	})

	state.Set("x", 2)
	if outer != 2 {
		t.Errorf("expected outer computation re-run after nested frame, got %d runs", outer)
	}
}

func TestTrackingStackCleanedUp(t *testing.T) {
	e := New()
	defer e.Close()
	b := e.Box(1)

	e.RunComputation(func() any {
		_ = b.Value()
		return nil
	})

	// After the run this goroutine has no frames; the stack entry is gone.
	count := 0
	e.stacks.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count != 0 {
		t.Errorf("expected no goroutine stacks after run, got %d", count)
	}
}

func TestUntrackedInsideComputation(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 1, "y": 2}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("x")
		e.Untracked(func() {
			_ = state.Get("y")
		})
		return nil
	})

	state.Set("y", 20)
	if runs != 1 {
		t.Errorf("expected untracked read to not subscribe, got %d runs", runs)
	}

	state.Set("x", 10)
	if runs != 2 {
		t.Errorf("expected tracked read to still subscribe, got %d runs", runs)
	}
}

func TestUntrackedOutsideComputation(t *testing.T) {
	e := New()
	defer e.Close()
	b := e.Box(1)

	// No active computation; Untracked is just a passthrough.
	var got int
	e.Untracked(func() {
		got = b.Value().(int)
	})
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestConcurrentComputations(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	const n = 16
	var wg sync.WaitGroup
	runners := make([]*Runner, n)
	counts := make([]int, n)
	var mu sync.Mutex

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			runners[i] = e.RunComputation(func() any {
				mu.Lock()
				counts[i]++
				mu.Unlock()
				return state.Get("x")
			})
		}(i)
	}
	wg.Wait()

	state.Set("x", 1)

	mu.Lock()
	defer mu.Unlock()
	for i, c := range counts {
		if c != 2 {
			t.Errorf("runner %d: expected 2 runs, got %d", i, c)
		}
	}
}

func TestConcurrentWrites(t *testing.T) {
	e := New()
	defer e.Close()

	const n = 8
	boxes := make([]*Box, n)
	for i := range boxes {
		boxes[i] = e.Box(0)
	}

	var mu sync.Mutex
	total := 0
	e.RunComputation(func() any {
		sum := 0
		for _, b := range boxes {
			sum += b.Value().(int)
		}
		mu.Lock()
		total = sum
		mu.Unlock()
		return nil
	})

	// Writers on separate goroutines race against re-runs; the engine must
	// stay consistent and the final re-read must see every write.
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			boxes[i].Set(i + 1)
		}(i)
	}
	wg.Wait()

	// One more write after the dust settles forces a final coherent run.
	boxes[0].Set(100)

	mu.Lock()
	got := total
	mu.Unlock()
	want := 100
	for i := 1; i < n; i++ {
		want += i + 1
	}
	if got != want {
		t.Errorf("expected final sum %d, got %d", want, got)
	}
}
