package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Inspector serves a live view of one engine: the dependency graph, its
// bookkeeping counters and a WebSocket stream of engine events.
type Inspector struct {
	engine *reverb.Engine
	logger *slog.Logger
	hub    *eventHub
	router chi.Router

	// events buffers the tap between the engine and the broadcast loop.
	events chan reverb.Event
	cancel func()
	quit   chan struct{}
	done   chan struct{}

	httpServer *http.Server
	mu         sync.Mutex
	closed     bool

	metricsHandler http.Handler
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ins *Inspector) {
		if l != nil {
			ins.logger = l
		}
	}
}

// WithEventBuffer sets the size of the event buffer between the engine and
// the WebSocket broadcast loop (default: 256). Events beyond a full buffer
// are dropped.
func WithEventBuffer(n int) Option {
	return func(ins *Inspector) {
		if n > 0 {
			ins.events = make(chan reverb.Event, n)
		}
	}
}

// WithMetricsHandler mounts h at /metrics, typically promhttp.Handler()
// when the engine is instrumented:
//
//	detach := instrument.Attach(e)
//	defer detach()
//	ins := inspect.New(e, inspect.WithMetricsHandler(promhttp.Handler()))
func WithMetricsHandler(h http.Handler) Option {
	return func(ins *Inspector) {
		ins.metricsHandler = h
	}
}

// New creates an inspector attached to an engine. The inspector observes the
// engine immediately; call Close to detach.
func New(e *reverb.Engine, opts ...Option) *Inspector {
	ins := &Inspector{
		engine: e,
		logger: slog.Default(),
		hub:    newEventHub(),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ins)
	}
	if ins.events == nil {
		ins.events = make(chan reverb.Event, 256)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", ins.handleIndex)
	r.Get("/graph", ins.handleGraph)
	r.Get("/stats", ins.handleStats)
	r.Get("/live", ins.hub.handleWebSocket)
	if ins.metricsHandler != nil {
		r.Handle("/metrics", ins.metricsHandler)
	}
	ins.router = r

	// The tap never blocks the engine: bursts beyond the buffer are dropped.
	ins.cancel = e.Observe(func(ev reverb.Event) {
		select {
		case ins.events <- ev:
		default:
		}
	})
	go ins.pump()

	return ins
}

// Handler returns the inspector's routes for mounting into another router.
func (ins *Inspector) Handler() http.Handler {
	return ins.router
}

// ClientCount returns the number of connected event stream clients.
func (ins *Inspector) ClientCount() int {
	return ins.hub.clientCount()
}

// Start serves the inspector on addr until ctx is canceled or the server
// fails. The inspector is closed on return.
func (ins *Inspector) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: ins.router,
	}
	ins.mu.Lock()
	ins.httpServer = srv
	ins.mu.Unlock()

	ins.logger.Info("reverb inspector listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		ins.Close()
		return nil
	case err := <-errCh:
		ins.Close()
		return err
	}
}

// Close detaches the inspector from the engine, disconnects all clients and
// shuts down the HTTP server if Start is running. Close is idempotent.
func (ins *Inspector) Close() {
	ins.mu.Lock()
	if ins.closed {
		ins.mu.Unlock()
		return
	}
	ins.closed = true
	srv := ins.httpServer
	ins.mu.Unlock()

	ins.cancel()
	close(ins.quit)
	<-ins.done
	ins.hub.close()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// pump drains the event buffer into the WebSocket hub.
func (ins *Inspector) pump() {
	defer close(ins.done)

	for {
		select {
		case <-ins.quit:
			return
		case ev := <-ins.events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			ins.hub.broadcast(data)
		}
	}
}

func (ins *Inspector) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ins.engine.GraphSnapshot())
}

func (ins *Inspector) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ins.engine.Stats())
}

func (ins *Inspector) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// indexPage is the inspector's landing page: links to the JSON endpoints and
// a live tail of the event stream.
const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>Reverb Inspector</title>
<style>
body { font-family: system-ui; margin: 0; padding: 24px; background: #1a1a1a; color: #eee; }
h1 { margin: 0 0 8px; font-size: 20px; }
a { color: #7cb3ff; margin-right: 16px; }
#status { color: #888; margin-left: 8px; }
#log { background: #111; border: 1px solid #333; border-radius: 8px; padding: 12px;
       margin-top: 16px; height: 70vh; overflow: auto; font-family: monospace;
       font-size: 13px; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>Reverb Inspector</h1>
<p>
<a href="graph">graph</a>
<a href="stats">stats</a>
<span id="status">connecting...</span>
</p>
<div id="log"></div>
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var log = document.getElementById('log');
    var status = document.getElementById('status');

    function append(line) {
        var atBottom = log.scrollTop + log.clientHeight >= log.scrollHeight - 4;
        log.textContent += line + '\n';
        while (log.textContent.length > 200000) {
            var cut = log.textContent.indexOf('\n');
            log.textContent = log.textContent.slice(cut + 1);
        }
        if (atBottom) {
            log.scrollTop = log.scrollHeight;
        }
    }

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var base = location.pathname.replace(/\/$/, '');
        var ws = new WebSocket(protocol + '//' + location.host + base + '/live');

        ws.onopen = function() {
            status.textContent = 'live';
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            append(e.data);
        };

        ws.onclose = function() {
            status.textContent = 'disconnected, retrying...';
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    connect();
})();
</script>
</body>
</html>
`
