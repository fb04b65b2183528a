package instrument

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Default tracer name for reverb engines.
const defaultTracerName = "reverb"

// TraceConfig configures the OpenTelemetry run interceptor.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "reverb").
	TracerName string

	// Filter determines which runs to trace.
	// Return true to trace the run, false to skip.
	// If nil, all runs are traced.
	Filter func(r *reverb.Runner) bool

	// AttributeExtractor extracts custom attributes for each traced run.
	AttributeExtractor func(r *reverb.Runner) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TraceOption configures the OpenTelemetry run interceptor.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithRunFilter sets a filter function for runs.
func WithRunFilter(filter func(r *reverb.Runner) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// WithRunAttributes sets a custom attribute extractor.
func WithRunAttributes(extractor func(r *reverb.Runner) []attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultTraceConfig returns the default tracing configuration.
func defaultTraceConfig() TraceConfig {
	return TraceConfig{
		TracerName: defaultTracerName,
		Filter:     nil,
	}
}

// Tracing creates a run interceptor that opens a span around every
// computation run.
//
// The interceptor:
//   - Creates a span per run named after the computation's label
//   - Records the runner ID and label as span attributes
//   - Records panics and sets span status before re-panicking
//
// Computation runs carry no context, so spans parent to the background
// context. Configure the global tracer provider in your main() before
// creating the engine:
//
//	otel.SetTracerProvider(tp)
//	e := reverb.New(
//	    reverb.WithRunInterceptor(instrument.Tracing()),
//	)
func Tracing(opts ...TraceOption) reverb.RunInterceptor {
	config := defaultTraceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return func(r *reverb.Runner, next func() any) any {
		// Apply filter if configured
		if config.Filter != nil && !config.Filter(r) {
			return next()
		}

		spanName := formatSpanName(r)

		attrs := []attribute.KeyValue{
			attribute.Int64("reverb.runner_id", int64(r.ID())),
		}
		if label := r.Label(); label != "" {
			attrs = append(attrs, attribute.String("reverb.label", label))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(r)...)
		}

		_, span := config.tracer.Start(
			context.Background(),
			spanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)

		defer func() {
			if p := recover(); p != nil {
				span.RecordError(fmt.Errorf("computation panic: %v", p))
				span.SetStatus(codes.Error, "panic")
				span.End()
				panic(p)
			}
			span.SetStatus(codes.Ok, "")
			span.End()
		}()

		return next()
	}
}

// formatSpanName creates a span name for a runner.
func formatSpanName(r *reverb.Runner) string {
	if label := r.Label(); label != "" {
		return fmt.Sprintf("reverb.%s", label)
	}
	return "reverb.run"
}
