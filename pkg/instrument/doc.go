// Package instrument provides production-grade observability for reverb
// engines.
//
// This package includes:
//   - Prometheus metrics collection from the engine's event tap
//   - OpenTelemetry tracing of computation runs
//
// # Prometheus Metrics
//
// Attach collects metrics about an engine:
//   - reverb_records_total: Counter of new dependency edges
//   - reverb_notifies_total: Counter of notifications delivered
//   - reverb_notify_fanout: Histogram of runners reached per notification
//   - reverb_runs_total: Counter of computation runs by label
//   - reverb_run_duration_seconds: Histogram of run duration by label
//   - reverb_violations_total: Counter of discarded writes
//   - reverb_graph_*: Gauges over the live dependency graph
//
//	e := reverb.New()
//	detach := instrument.Attach(e, instrument.WithNamespace("myapp"))
//	defer detach()
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
//
// # OpenTelemetry Tracing
//
// Tracing builds a run interceptor that opens a span around every
// computation run. Install it at engine construction:
//
//	e := reverb.New(
//	    reverb.WithRunInterceptor(instrument.Tracing(
//	        instrument.WithTracerName("my-app"),
//	    )),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// your main() before creating the engine:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//	otel.SetTracerProvider(tp)
package instrument
