package rtest

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Recorder collects engine events for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []reverb.Event
	kinds  map[reverb.EventKind]bool
	cancel func()
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithKinds keeps only events of the given kinds. Without this option the
// recorder keeps everything.
//
// Example:
//
//	rec := rtest.NewRecorder(e, rtest.WithKinds(reverb.EventNotify, reverb.EventRun))
func WithKinds(kinds ...reverb.EventKind) RecorderOption {
	return func(r *Recorder) {
		r.kinds = make(map[reverb.EventKind]bool, len(kinds))
		for _, k := range kinds {
			r.kinds[k] = true
		}
	}
}

// NewRecorder attaches a recorder to the engine's event stream. Call Stop
// when done; a recorder left attached keeps the engine in observing mode.
//
// Example:
//
//	rec := rtest.NewRecorder(e)
//	defer rec.Stop()
func NewRecorder(e *reverb.Engine, opts ...RecorderOption) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	r.cancel = e.Observe(func(ev reverb.Event) {
		if r.kinds != nil && !r.kinds[ev.Kind] {
			return
		}
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []reverb.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reverb.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind reverb.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Records returns the number of dependency-edge events recorded.
func (r *Recorder) Records() int { return r.Count(reverb.EventRecord) }

// Notifies returns the number of notify events recorded.
func (r *Recorder) Notifies() int { return r.Count(reverb.EventNotify) }

// Runs returns the number of run events recorded.
func (r *Recorder) Runs() int { return r.Count(reverb.EventRun) }

// Violations returns the number of violation events recorded.
func (r *Recorder) Violations() int { return r.Count(reverb.EventViolation) }

// Last returns the most recent event of the given kind.
func (r *Recorder) Last(kind reverb.EventKind) (reverb.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return reverb.Event{}, false
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Stop detaches the recorder from the engine. Events already recorded stay
// readable. Stop is idempotent.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// CountingRunner wraps a computation and counts how many times it ran.
type CountingRunner struct {
	runner *reverb.Runner
	runs   atomic.Int64
}

// NewCountingRunner registers fn as a computation that counts its runs.
// Computation options pass through unchanged, so reverb.Lazy,
// reverb.WithLabel and reverb.WithScheduler all work.
//
// Example:
//
//	c := rtest.NewCountingRunner(e, func() any { return box.Value() })
//	box.Set(2)
//	rtest.ExpectRuns(t, c, 2)
func NewCountingRunner(e *reverb.Engine, fn func() any, opts ...reverb.ComputationOption) *CountingRunner {
	c := &CountingRunner{}
	c.runner = e.RunComputation(func() any {
		c.runs.Add(1)
		return fn()
	}, opts...)
	return c
}

// Runs returns how many times the computation has executed.
func (c *CountingRunner) Runs() int {
	return int(c.runs.Load())
}

// Runner returns the underlying runner.
func (c *CountingRunner) Runner() *reverb.Runner {
	return c.runner
}

// Run executes the computation once and returns its result.
func (c *CountingRunner) Run() any {
	return c.runner.Run()
}

// Dispose disposes the underlying runner.
func (c *CountingRunner) Dispose() {
	c.runner.Dispose()
}

// ManualScheduler queues runners instead of re-running them, giving a test
// explicit control over when reactions happen. Pass its Schedule method as
// a computation's scheduler:
//
//	sched := &rtest.ManualScheduler{}
//	e.RunComputation(fn, reverb.WithScheduler(sched.Schedule))
//
// A runner already queued is not queued again, matching how batching
// layers coalesce repeated invalidations.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*reverb.Runner
}

// Schedule queues the runner for the next Flush.
func (s *ManualScheduler) Schedule(r *reverb.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p == r {
			return
		}
	}
	s.pending = append(s.pending, r)
}

// Pending returns the number of queued runners.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every queued runner once, in the order they were scheduled,
// and returns how many ran. Runners scheduled during the flush wait for
// the next one.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, r := range queued {
		r.Run()
	}
	return len(queued)
}

// ExpectRuns asserts the computation has run exactly want times.
func ExpectRuns(tb testing.TB, c *CountingRunner, want int) {
	tb.Helper()
	if got := c.Runs(); got != want {
		tb.Errorf("expected %d runs, got %d", want, got)
	}
}

// ExpectReruns asserts that mutate causes exactly want additional runs.
//
// Example:
//
//	rtest.ExpectReruns(t, c, 1, func() { box.Set(5) })
func ExpectReruns(tb testing.TB, c *CountingRunner, want int, mutate func()) {
	tb.Helper()
	before := c.Runs()
	mutate()
	if got := c.Runs() - before; got != want {
		tb.Errorf("expected %d reruns, got %d", want, got)
	}
}

// ExpectStable asserts that mutate causes no re-run at all.
//
// Example:
//
//	rtest.ExpectStable(t, c, func() { box.Set(box.Peek()) })
func ExpectStable(tb testing.TB, c *CountingRunner, mutate func()) {
	tb.Helper()
	before := c.Runs()
	mutate()
	if got := c.Runs() - before; got != 0 {
		tb.Errorf("expected no reruns, got %d", got)
	}
}

// ExpectEvent asserts that at least one event of the given kind was
// recorded.
func ExpectEvent(tb testing.TB, r *Recorder, kind reverb.EventKind) {
	tb.Helper()
	if r.Count(kind) == 0 {
		tb.Errorf("expected a %s event, none recorded", kind)
	}
}

// ExpectNoEvent asserts that no event of the given kind was recorded.
func ExpectNoEvent(tb testing.TB, r *Recorder, kind reverb.EventKind) {
	tb.Helper()
	if n := r.Count(kind); n != 0 {
		tb.Errorf("expected no %s events, got %d", kind, n)
	}
}

// ExpectViolation asserts that a violation containing substr was recorded.
//
// Example:
//
//	rtest.ExpectViolation(t, rec, "read-only")
func ExpectViolation(tb testing.TB, r *Recorder, substr string) {
	tb.Helper()
	for _, ev := range r.Events() {
		if ev.Kind == reverb.EventViolation && strings.Contains(ev.Detail, substr) {
			return
		}
	}
	tb.Errorf("expected a violation containing %q, got %d violations", substr, r.Violations())
}
