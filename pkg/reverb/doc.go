// Package reverb provides a fine-grained reactive dependency-tracking engine.
//
// State is wrapped in tracked containers so that reads performed inside a
// computation are recorded as dependencies, and writes re-run exactly the
// computations that depend on the changed location. Dependencies are keyed
// by (source, key), so writing one key of an object re-runs only the
// computations that read that key.
//
// # Engine
//
// All tracking state lives on an Engine. Applications typically create one
// engine and share it:
//
//	e := reverb.New()
//	defer e.Close()
//
// # Tracked Objects
//
// Wrap converts a map[string]any into a tracked Object. Reads through the
// wrapper record dependencies; writes notify dependents:
//
//	state := e.Wrap(map[string]any{"count": 0}).(*reverb.Object)
//	e.RunComputation(func() any {
//	    fmt.Println("count is", state.Get("count"))
//	    return nil
//	})
//	state.Set("count", 1) // re-runs the computation
//
// Wrapping the same map twice returns the identical wrapper. Nested maps and
// slices are wrapped lazily on read; WrapShallow skips nested wrapping and
// WrapReadonly rejects writes through the warning channel.
//
// # Computations
//
// RunComputation registers a function as a trackable unit. It runs
// immediately unless created with Lazy, and re-runs whenever a recorded
// dependency changes. WithScheduler replaces the direct re-run with a
// callback, which is how render loops and batching layers take control of
// timing:
//
//	r := e.RunComputation(update, reverb.WithScheduler(func(r *reverb.Runner) {
//	    queue = append(queue, r) // run later
//	}))
//
// # Derived Values
//
// Derive builds a cached computation that recomputes lazily on read and
// only after a dependency changed:
//
//	total := reverb.Derive(e, func() int {
//	    return state.Get("a").(int) + state.Get("b").(int)
//	})
//	fmt.Println(total.Value())
//
// # Boxes
//
// Box holds a single value slot for scalars or for opting out of deep
// wrapping. ToBox and ToBoxes create boxes that stay linked to an object
// property in both directions.
//
// # Thread Safety
//
// The engine's bookkeeping is safe for concurrent use and the active
// computation is tracked per goroutine. Notification is synchronous: a write
// re-runs affected computations on the writing goroutine before the write
// returns, unless a scheduler intervenes.
package reverb
