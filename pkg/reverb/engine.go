package reverb

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Engine owns all reactive state: the dependency graph, the per-goroutine
// active-computation stacks, the wrapper caches and the warning channel.
// Engines are independent; state wrapped by one engine is invisible to
// another. Create one per application, or one per test for isolation.
type Engine struct {
	logger *slog.Logger

	// warn receives violation messages (writes to read-only state).
	// Defaults to logging through the engine's logger at Warn level.
	warn func(string)

	// debug enables verbose logging of record and notify operations.
	debug bool

	graph *depGraph

	// stacks maps goroutine IDs to their active-runner stacks.
	stacks sync.Map

	// Wrapper identity caches, keyed by the raw container's identity.
	// All wrapper variants of one raw container share a cache entry, so they
	// also share one source ID and one lock.
	cacheMu     sync.Mutex
	objectCache map[uintptr]*objectEntry
	listCache   map[sliceKey]*listEntry

	// observers receive engine events; observing is the fast-path flag.
	obsMu     sync.RWMutex
	observers []observerSub
	observing atomic.Bool

	// interceptors wrap every computation run, outermost first.
	// Fixed at construction.
	interceptors []RunInterceptor

	closed atomic.Bool
}

// Option is an option for configuring an Engine.
type Option interface {
	isOption()
	apply(e *Engine)
}

type optionFunc func(*Engine)

func (f optionFunc) isOption()       {}
func (f optionFunc) apply(e *Engine) { f(e) }

// WithLogger sets the logger used for warnings and debug output.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	})
}

// WithWarnHandler replaces the destination of violation messages. The
// handler runs synchronously on the goroutine that attempted the write.
func WithWarnHandler(fn func(string)) Option {
	return optionFunc(func(e *Engine) {
		e.warn = fn
	})
}

// WithObserver registers an event observer at construction.
// Equivalent to calling Observe immediately after New, without the
// cancellation handle.
func WithObserver(fn func(Event)) Option {
	return optionFunc(func(e *Engine) {
		e.observers = append(e.observers, observerSub{id: nextID(), fn: fn})
		e.observing.Store(true)
	})
}

// WithRunInterceptor adds an interceptor around every computation run.
// Interceptors are applied in the order given, first installed outermost.
func WithRunInterceptor(ic RunInterceptor) Option {
	return optionFunc(func(e *Engine) {
		if ic != nil {
			e.interceptors = append(e.interceptors, ic)
		}
	})
}

// WithDebug enables debug-level logging of every new dependency edge and
// every notification. Intended for development; the volume is high.
func WithDebug() Option {
	return optionFunc(func(e *Engine) {
		e.debug = true
	})
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:      slog.Default(),
		graph:       newDepGraph(),
		objectCache: make(map[uintptr]*objectEntry),
		listCache:   make(map[sliceKey]*listEntry),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	if e.warn == nil {
		e.warn = func(msg string) {
			e.logger.Warn(msg)
		}
	}

	return e
}

// Close clears the dependency graph, the wrapper caches and the goroutine
// stacks. Wrappers already handed out keep working as plain containers:
// reads and writes still reach the raw data, but nothing is recorded or
// notified anymore. Close is idempotent.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}

	e.graph.clear()

	e.cacheMu.Lock()
	e.objectCache = make(map[uintptr]*objectEntry)
	e.listCache = make(map[sliceKey]*listEntry)
	e.cacheMu.Unlock()

	e.stacks.Range(func(k, _ any) bool {
		e.stacks.Delete(k)
		return true
	})
}

// record subscribes the active runner, if any, to (src, key).
func (e *Engine) record(src uint64, key string) {
	if e.closed.Load() {
		return
	}
	r := e.activeRunner()
	if r == nil || r.disposed.Load() {
		return
	}
	if !e.graph.record(src, key, r) {
		return
	}
	if e.debug {
		e.logger.Debug("reverb: dependency recorded",
			"source", src, "key", key, "runner", r.id, "label", r.label)
	}
	e.emit(Event{Kind: EventRecord, Source: src, Key: key, Runner: r.id, Label: r.label})
}

// notify re-runs the computations subscribed to (src, key).
func (e *Engine) notify(src uint64, key string) {
	if e.closed.Load() {
		return
	}
	delivered := e.graph.notify(src, key, e.activeRunner())
	if delivered < 0 {
		return
	}
	if e.debug {
		e.logger.Debug("reverb: notified",
			"source", src, "key", key, "fanout", delivered)
	}
	e.emit(Event{Kind: EventNotify, Source: src, Key: key, Fanout: delivered})
}

// violation reports a discarded write through the warning channel.
func (e *Engine) violation(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.warn(msg)
	e.emit(Event{Kind: EventViolation, Detail: msg})
}
