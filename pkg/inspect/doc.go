// Package inspect provides a live HTTP inspector for reverb engines.
//
// This package implements:
//   - A JSON view of the dependency graph and its bookkeeping counters
//   - WebSocket-based streaming of engine events to connected browsers
//   - A minimal HTML landing page that tails the event stream
//
// # Endpoints
//
// The inspector serves:
//
//	GET /         HTML landing page
//	GET /graph    Current dependency graph as JSON
//	GET /stats    Bookkeeping counters as JSON
//	GET /live     WebSocket event stream
//	GET /metrics  Prometheus metrics, when mounted with WithMetricsHandler
//
// # Usage
//
//	e := reverb.New()
//	ins := inspect.New(e)
//	defer ins.Close()
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	if err := ins.Start(ctx, "localhost:6880"); err != nil {
//	    log.Fatal(err)
//	}
//
// Or mount the inspector into an existing router:
//
//	r.Mount("/debug/reverb", ins.Handler())
//
// # Event Stream Protocol
//
// The browser connects to /live via WebSocket. Events are JSON-encoded:
//
//	{"kind": "record", "source": 3, "key": "count", "runner": 7}
//	{"kind": "notify", "source": 3, "key": "count", "fanout": 2}
//	{"kind": "run", "runner": 7, "duration": 1200}
//	{"kind": "violation", "detail": "..."}
//
// The tap is non-blocking: bursts beyond the inspector's buffer are dropped
// rather than slowing the engine down.
package inspect
