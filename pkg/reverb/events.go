package reverb

import "time"

// EventKind identifies what happened inside the engine.
type EventKind uint8

const (
	// EventRecord fires when a read creates a new dependency edge.
	// Repeat reads of an already-recorded location do not fire.
	EventRecord EventKind = iota

	// EventNotify fires when a write reaches a location some computation has
	// read. Fanout carries the number of runners delivered to.
	EventNotify

	// EventRun fires after a computation finishes a run, including runs that
	// ended in a panic.
	EventRun

	// EventViolation fires when a discarded write was reported through the
	// warning channel.
	EventViolation
)

// String returns the kind's name.
func (k EventKind) String() string {
	switch k {
	case EventRecord:
		return "record"
	case EventNotify:
		return "notify"
	case EventRun:
		return "run"
	case EventViolation:
		return "violation"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its name, so events serialize readably.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event describes one engine operation for observers. Which fields are set
// depends on Kind; zero values mean "not applicable".
type Event struct {
	Kind EventKind `json:"kind"`

	// Source and Key identify the location for record and notify events.
	Source uint64 `json:"source,omitempty"`
	Key    string `json:"key,omitempty"`

	// Runner and Label identify the computation for record and run events.
	Runner uint64 `json:"runner,omitempty"`
	Label  string `json:"label,omitempty"`

	// Fanout is the number of runners a notify delivered to.
	Fanout int `json:"fanout,omitempty"`

	// Duration is how long a run took.
	Duration time.Duration `json:"duration,omitempty"`

	// Detail carries the violation message.
	Detail string `json:"detail,omitempty"`
}

// observerSub pairs an observer callback with an ID for cancellation.
type observerSub struct {
	id uint64
	fn func(Event)
}

// Observe registers fn to receive engine events and returns a function that
// cancels the registration. Observers run synchronously on the goroutine
// that caused the event, so they must be fast and must not write tracked
// state.
//
// With no observers registered the engine skips event construction entirely,
// so an idle tap costs nothing.
func (e *Engine) Observe(fn func(Event)) func() {
	id := nextID()

	e.obsMu.Lock()
	e.observers = append(e.observers, observerSub{id: id, fn: fn})
	e.obsMu.Unlock()
	e.observing.Store(true)

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, sub := range e.observers {
			if sub.id == id {
				e.observers[i] = e.observers[len(e.observers)-1]
				e.observers = e.observers[:len(e.observers)-1]
				break
			}
		}
		e.observing.Store(len(e.observers) > 0)
	}
}

// emit delivers an event to all observers.
// Uses copy-before-notify so observers can cancel themselves mid-delivery.
func (e *Engine) emit(ev Event) {
	if !e.observing.Load() {
		return
	}

	e.obsMu.RLock()
	subs := make([]observerSub, len(e.observers))
	copy(subs, e.observers)
	e.obsMu.RUnlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}
