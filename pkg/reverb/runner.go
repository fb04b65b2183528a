package reverb

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runner wraps a function as a trackable computation. While the function
// executes, reads through the engine's tracked containers are recorded as
// dependencies of this runner; when any of those locations is later written,
// the runner re-runs (or is handed to its scheduler).
//
// Runners are created with Engine.RunComputation and remain subscribed to
// every location they ever read until disposed.
type Runner struct {
	id uint64

	// fn is the computation to run.
	fn func() any

	// scheduler, when set, receives the runner instead of it being re-run
	// directly on notification. The first run is never scheduled.
	scheduler func(*Runner)

	// lazy suppresses the immediate first run on creation.
	lazy bool

	// label is an optional name for logs, traces and the inspector.
	label string

	// entries are the dependency sets this runner has joined.
	entries   []*depSet
	entriesMu sync.Mutex

	// disposed indicates the runner has been disposed.
	disposed atomic.Bool

	engine *Engine
}

// ID returns the unique identifier for this runner.
func (r *Runner) ID() uint64 {
	return r.id
}

// Label returns the name given with WithLabel, or "".
func (r *Runner) Label() string {
	return r.label
}

// IsDisposed reports whether Dispose has been called.
func (r *Runner) IsDisposed() bool {
	return r.disposed.Load()
}

// Run executes the computation and returns its result.
//
// If the runner is already executing on this goroutine, directly or through
// nested computations, the call is skipped and Run returns nil: a
// computation that writes a location it also reads must not recurse into
// itself. Disposed runners are skipped the same way.
//
// A panic inside the computation propagates to the caller. The active-runner
// stack is restored on every exit path, so tracking state stays usable after
// a failed run.
func (r *Runner) Run() any {
	if r.disposed.Load() {
		return nil
	}
	if r.engine.runnerOnStack(r) {
		return nil
	}

	r.engine.pushRunner(r)
	defer r.engine.popRunner()

	if r.engine.observing.Load() {
		start := time.Now()
		defer func() {
			r.engine.emit(Event{
				Kind:     EventRun,
				Runner:   r.id,
				Label:    r.label,
				Duration: time.Since(start),
			})
		}()
	}

	return r.invoke()
}

// invoke runs fn through the engine's interceptor chain.
func (r *Runner) invoke() any {
	next := r.fn
	for i := len(r.engine.interceptors) - 1; i >= 0; i-- {
		ic := r.engine.interceptors[i]
		inner := next
		next = func() any { return ic(r, inner) }
	}
	return next()
}

// Dispose removes the runner from every dependency set it joined. Subsequent
// writes to those locations no longer re-run it. Dispose is idempotent and
// does not interrupt a run already in progress.
func (r *Runner) Dispose() {
	if r.disposed.Swap(true) {
		return
	}

	r.entriesMu.Lock()
	entries := r.entries
	r.entries = nil
	r.entriesMu.Unlock()

	for _, set := range entries {
		set.remove(r)
	}
}

// addEntry stores a back-reference to a dependency set this runner joined.
// Called by the graph when a read creates a new edge.
func (r *Runner) addEntry(set *depSet) {
	r.entriesMu.Lock()
	defer r.entriesMu.Unlock()

	for _, e := range r.entries {
		if e == set {
			return
		}
	}
	r.entries = append(r.entries, set)
}

// RunInterceptor wraps the execution of every computation on an engine.
// Interceptors are installed with WithRunInterceptor and compose like
// middleware: the first installed interceptor is the outermost. An
// interceptor must call next exactly once and return its result (or a
// replacement).
type RunInterceptor func(r *Runner, next func() any) any

// ComputationOption is an option for configuring a computation.
type ComputationOption interface {
	isComputationOption()
	applyComputation(r *Runner)
}

type computationOptionFunc func(*Runner)

func (f computationOptionFunc) isComputationOption()       {}
func (f computationOptionFunc) applyComputation(r *Runner) { f(r) }

// Lazy suppresses the immediate first run. A lazy runner has no dependencies
// until its first Run, so no write can trigger it before then.
func Lazy() ComputationOption {
	return computationOptionFunc(func(r *Runner) {
		r.lazy = true
	})
}

// WithScheduler replaces direct re-runs with a callback. When a dependency
// changes, the scheduler receives the runner and decides when (or whether)
// to call Run. The immediate first run on creation is not affected.
//
// This is the hook for render loops and batching layers:
//
//	r := e.RunComputation(render, reverb.WithScheduler(func(r *reverb.Runner) {
//	    frameQueue.Add(r)
//	}))
func WithScheduler(fn func(*Runner)) ComputationOption {
	return computationOptionFunc(func(r *Runner) {
		r.scheduler = fn
	})
}

// WithLabel names the computation for logs, traces and the inspector.
func WithLabel(name string) ComputationOption {
	return computationOptionFunc(func(r *Runner) {
		r.label = name
	})
}

// RunComputation registers fn as a trackable computation and, unless Lazy is
// given, runs it once immediately. Reads performed during a run are recorded
// as the computation's dependencies.
//
// Example:
//
//	r := e.RunComputation(func() any {
//	    fmt.Println("count is", state.Get("count"))
//	    return nil
//	})
//	defer r.Dispose()
func (e *Engine) RunComputation(fn func() any, opts ...ComputationOption) *Runner {
	r := &Runner{
		id:     nextID(),
		fn:     fn,
		engine: e,
	}

	for _, opt := range opts {
		opt.applyComputation(r)
	}

	if !r.lazy {
		r.Run()
	}

	return r
}
