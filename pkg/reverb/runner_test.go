package reverb

import "testing"

func TestRunComputationRunsImmediately(t *testing.T) {
	e := New()
	defer e.Close()

	runs := 0
	e.RunComputation(func() any {
		runs++
		return nil
	})

	if runs != 1 {
		t.Errorf("expected 1 run on creation, got %d", runs)
	}
}

func TestRunComputationRerunsOnWrite(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"count": 0}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("count")
		return nil
	})

	state.Set("count", 1)
	if runs != 2 {
		t.Errorf("expected 2 runs after write, got %d", runs)
	}

	state.Set("count", 2)
	if runs != 3 {
		t.Errorf("expected 3 runs after second write, got %d", runs)
	}
}

func TestRunComputationKeyPrecision(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"a": 1, "b": 2}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("a")
		return nil
	})

	// Writing a key the computation never read must not re-run it.
	state.Set("b", 20)
	if runs != 1 {
		t.Errorf("write to unread key should not re-run, got %d runs", runs)
	}

	state.Set("a", 10)
	if runs != 2 {
		t.Errorf("expected 2 runs after write to read key, got %d", runs)
	}
}

func TestRunComputationExactlyOncePerWrite(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		// Reading the same key several times records one edge.
		_ = state.Get("x")
		_ = state.Get("x")
		_ = state.Get("x")
		return nil
	})

	state.Set("x", 1)
	if runs != 2 {
		t.Errorf("expected exactly one re-run per write, got %d runs", runs)
	}
}

func TestRunComputationSelfTriggerSuppressed(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"count": 0}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		n := state.Get("count").(int)
		// Writing a location this computation reads must not recurse.
		state.Set("count", n+1)
		return nil
	})

	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
	if got := state.Get("count").(int); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}

	state.Set("count", 10)
	if runs != 2 {
		t.Errorf("expected 2 runs after external write, got %d", runs)
	}
	if got := state.Get("count").(int); got != 11 {
		t.Errorf("expected count 11, got %d", got)
	}
}

func TestRunComputationLazy(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	runs := 0
	r := e.RunComputation(func() any {
		runs++
		_ = state.Get("x")
		return nil
	}, Lazy())

	if runs != 0 {
		t.Errorf("lazy computation should not run on creation, got %d runs", runs)
	}

	// No dependencies exist yet, so writes cannot trigger it.
	state.Set("x", 1)
	if runs != 0 {
		t.Errorf("lazy computation should have no dependencies before first run, got %d runs", runs)
	}

	r.Run()
	if runs != 1 {
		t.Errorf("expected 1 run after explicit Run, got %d", runs)
	}

	state.Set("x", 2)
	if runs != 2 {
		t.Errorf("expected re-run after first Run established dependencies, got %d runs", runs)
	}
}

func TestRunComputationScheduler(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	runs := 0
	var queued []*Runner
	e.RunComputation(func() any {
		runs++
		_ = state.Get("x")
		return nil
	}, WithScheduler(func(r *Runner) {
		queued = append(queued, r)
	}))

	// The first run is immediate, never scheduled.
	if runs != 1 {
		t.Errorf("expected immediate first run, got %d", runs)
	}
	if len(queued) != 0 {
		t.Errorf("first run should not go through the scheduler, got %d queued", len(queued))
	}

	state.Set("x", 1)
	if runs != 1 {
		t.Errorf("scheduled computation should not re-run directly, got %d runs", runs)
	}
	if len(queued) != 1 {
		t.Errorf("expected 1 queued runner, got %d", len(queued))
	}

	queued[0].Run()
	if runs != 2 {
		t.Errorf("expected 2 runs after draining the queue, got %d", runs)
	}
}

func TestRunComputationDependenciesAccumulate(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"flag": true, "a": 1, "b": 2}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		if state.Get("flag").(bool) {
			_ = state.Get("a")
		} else {
			_ = state.Get("b")
		}
		return nil
	})

	state.Set("flag", false)
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}

	// The branch no longer reads "a", but the edge from the first run stays
	// until the runner is disposed.
	state.Set("a", 100)
	if runs != 3 {
		t.Errorf("expected stale dependency to still re-run, got %d runs", runs)
	}

	state.Set("b", 200)
	if runs != 4 {
		t.Errorf("expected 4 runs, got %d", runs)
	}
}

func TestRunnerDispose(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	runs := 0
	r := e.RunComputation(func() any {
		runs++
		_ = state.Get("x")
		return nil
	})

	r.Dispose()
	if !r.IsDisposed() {
		t.Error("expected IsDisposed after Dispose")
	}

	state.Set("x", 1)
	if runs != 1 {
		t.Errorf("disposed runner should not re-run, got %d runs", runs)
	}

	if r.Run() != nil {
		t.Error("Run on a disposed runner should return nil")
	}
	if runs != 1 {
		t.Errorf("Run on a disposed runner should not execute, got %d runs", runs)
	}

	if edges := e.Stats().Edges; edges != 0 {
		t.Errorf("expected 0 edges after dispose, got %d", edges)
	}

	// Dispose is idempotent.
	r.Dispose()
}

func TestRunnerPanicUnwindsStack(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		e.RunComputation(func() any {
			panic("computation failed")
		})
	}()

	if e.activeRunner() != nil {
		t.Error("expected no active runner after panic")
	}

	// Tracking must still work after the failed run.
	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("x")
		return nil
	})
	state.Set("x", 1)
	if runs != 2 {
		t.Errorf("expected tracking to survive a panic, got %d runs", runs)
	}
}

func TestRunnerPanicInsideNestedRun(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"x": 0}).(*Object)

	boom := false
	r := e.RunComputation(func() any {
		_ = state.Get("x")
		if boom {
			panic("rerun failed")
		}
		return nil
	})

	boom = true
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from re-run to propagate through Set")
			}
		}()
		state.Set("x", 1)
	}()

	if e.activeRunner() != nil {
		t.Error("expected no active runner after panicking re-run")
	}

	boom = false
	r.Run()
	if got := state.Get("x").(int); got != 1 {
		t.Errorf("expected the write before the panic to have applied, got %d", got)
	}
}

func TestRunnerRunReturnsResult(t *testing.T) {
	e := New()
	defer e.Close()

	r := e.RunComputation(func() any { return 42 }, Lazy())
	if got := r.Run(); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestRunnerLabelAndID(t *testing.T) {
	e := New()
	defer e.Close()

	r1 := e.RunComputation(func() any { return nil }, Lazy(), WithLabel("render"))
	r2 := e.RunComputation(func() any { return nil }, Lazy())

	if r1.Label() != "render" {
		t.Errorf("expected label %q, got %q", "render", r1.Label())
	}
	if r2.Label() != "" {
		t.Errorf("expected empty label, got %q", r2.Label())
	}
	if r1.ID() == r2.ID() {
		t.Error("runners should have unique IDs")
	}
}

func TestUntracked(t *testing.T) {
	e := New()
	defer e.Close()
	state := e.Wrap(map[string]any{"a": 1, "b": 2}).(*Object)

	runs := 0
	e.RunComputation(func() any {
		runs++
		_ = state.Get("a")
		e.Untracked(func() {
			_ = state.Get("b")
		})
		return nil
	})

	state.Set("b", 20)
	if runs != 1 {
		t.Errorf("untracked read should not create a dependency, got %d runs", runs)
	}

	state.Set("a", 10)
	if runs != 2 {
		t.Errorf("tracked read should still create a dependency, got %d runs", runs)
	}
}
