// Package rtest provides testing helpers for code built on the reverb engine.
//
// The rtest package reduces boilerplate when testing reactive code by
// providing event recorders, run-counting computations and assertion
// helpers.
//
// # Quick Start
//
//	func TestCartTotal_Recomputes(t *testing.T) {
//	    e := reverb.New()
//	    defer e.Close()
//
//	    cart := e.Wrap(map[string]any{"qty": 1}).(*reverb.Object)
//	    total := rtest.NewCountingRunner(e, func() any {
//	        return cart.Get("qty")
//	    })
//
//	    cart.Set("qty", 2)
//	    rtest.ExpectRuns(t, total, 2)
//	}
//
// # Recording Engine Events
//
// A Recorder taps the engine's event stream and keeps a copy of every
// event until stopped:
//
//	rec := rtest.NewRecorder(e)
//	defer rec.Stop()
//
//	box.Set(5)
//	if rec.Notifies() != 1 {
//	    t.Errorf("expected 1 notify, got %d", rec.Notifies())
//	}
//
// Use WithKinds to keep only the kinds a test cares about:
//
//	rec := rtest.NewRecorder(e, rtest.WithKinds(reverb.EventViolation))
//
// # Counting Computations
//
// CountingRunner wraps Engine.RunComputation and counts executions. All
// computation options pass through, so lazy and scheduled runners can be
// counted too:
//
//	c := rtest.NewCountingRunner(e, readEverything, reverb.Lazy())
//	c.Run()
//	rtest.ExpectRuns(t, c, 1)
//
// # Controlling Schedulers
//
// ManualScheduler queues runners instead of re-running them, so a test can
// make writes and decide exactly when the reaction happens:
//
//	sched := &rtest.ManualScheduler{}
//	c := rtest.NewCountingRunner(e, render, reverb.WithScheduler(sched.Schedule))
//
//	box.Set(1)
//	box.Set(2)
//	rtest.ExpectRuns(t, c, 1) // nothing re-ran yet
//	sched.Flush()
//	rtest.ExpectRuns(t, c, 2)
//
// # Expectations
//
// Assertion helpers mark the test as failed with a descriptive message:
//
//	rtest.ExpectStable(t, c, func() { box.Set(box.Peek()) })
//	rtest.ExpectViolation(t, rec, "read-only")
package rtest
