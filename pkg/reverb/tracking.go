package reverb

import "runtime"

// runnerStack is the stack of computations executing on one goroutine.
// The top of the stack is the active runner whose reads are recorded.
// A nil frame means tracking is suspended (see Engine.Untracked).
//
// A stack is only ever touched by its own goroutine, so the frames slice
// needs no lock; the engine's stacks map provides the concurrent lookup.
type runnerStack struct {
	frames []*Runner
}

// goroutineID returns a unique identifier for the current goroutine.
// This uses the runtime stack to extract the goroutine ID.
// Note: This is an implementation detail and should not be relied upon externally.
func goroutineID() uint64 {
	// Use a buffer to read the stack
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> "
	// Parse the ID from the stack trace
	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// stack returns the runner stack for the current goroutine, creating it on
// first use.
func (e *Engine) stack() *runnerStack {
	gid := goroutineID()

	if s, ok := e.stacks.Load(gid); ok {
		return s.(*runnerStack)
	}

	s := &runnerStack{}
	e.stacks.Store(gid, s)
	return s
}

// pushRunner makes r the active runner for the current goroutine.
// Pass nil to suspend tracking for the duration of the frame.
func (e *Engine) pushRunner(r *Runner) {
	s := e.stack()
	s.frames = append(s.frames, r)
}

// popRunner restores the previously active runner. The goroutine's stack is
// removed from the engine once empty so idle goroutines leave nothing behind.
func (e *Engine) popRunner() {
	gid := goroutineID()
	v, ok := e.stacks.Load(gid)
	if !ok {
		return
	}
	s := v.(*runnerStack)
	if n := len(s.frames); n > 0 {
		s.frames[n-1] = nil
		s.frames = s.frames[:n-1]
	}
	if len(s.frames) == 0 {
		e.stacks.Delete(gid)
	}
}

// activeRunner returns the computation currently executing on this
// goroutine, or nil if none is running or tracking is suspended.
func (e *Engine) activeRunner() *Runner {
	v, ok := e.stacks.Load(goroutineID())
	if !ok {
		return nil
	}
	s := v.(*runnerStack)
	if n := len(s.frames); n > 0 {
		return s.frames[n-1]
	}
	return nil
}

// runnerOnStack reports whether r is anywhere on the current goroutine's
// stack, not just on top. This is the re-entrancy guard: a runner whose own
// execution (directly or through nested runners) triggers itself must not
// start a second frame.
func (e *Engine) runnerOnStack(r *Runner) bool {
	v, ok := e.stacks.Load(goroutineID())
	if !ok {
		return false
	}
	s := v.(*runnerStack)
	for _, f := range s.frames {
		if f != nil && f.id == r.id {
			return true
		}
	}
	return false
}

// Untracked runs fn with dependency tracking suspended. Reads performed
// inside fn are not recorded for the surrounding computation.
//
// Example:
//
//	e.RunComputation(func() any {
//	    total := state.Get("count") // tracked
//	    e.Untracked(func() {
//	        log.Println(state.Get("debugInfo")) // not tracked
//	    })
//	    return total
//	})
func (e *Engine) Untracked(fn func()) {
	e.pushRunner(nil)
	defer e.popRunner()
	fn()
}
