package instrument

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

func TestTracingPassesResultThrough(t *testing.T) {
	e := reverb.New(reverb.WithRunInterceptor(Tracing()))
	defer e.Close()

	r := e.RunComputation(func() any { return 42 }, reverb.Lazy())
	if got := r.Run().(int); got != 42 {
		t.Errorf("expected 42 through the traced run, got %v", got)
	}
}

func TestTracingKeepsTrackingIntact(t *testing.T) {
	e := reverb.New(reverb.WithRunInterceptor(Tracing()))
	defer e.Close()
	b := e.Box(1)

	runs := 0
	e.RunComputation(func() any {
		runs++
		return b.Value()
	})

	b.Set(2)
	if runs != 2 {
		t.Errorf("expected dependency tracking through the span, got %d runs", runs)
	}
}

func TestTracingFilterSkips(t *testing.T) {
	e := reverb.New(reverb.WithRunInterceptor(Tracing(
		WithRunFilter(func(r *reverb.Runner) bool {
			return r.Label() != "quiet"
		}),
	)))
	defer e.Close()

	called := false
	r := e.RunComputation(func() any {
		called = true
		return "ok"
	}, reverb.Lazy(), reverb.WithLabel("quiet"))

	if got := r.Run().(string); got != "ok" {
		t.Errorf("expected filtered run to still execute, got %v", got)
	}
	if !called {
		t.Error("expected the computation to run when the filter skips tracing")
	}
}

func TestTracingAttributeExtractor(t *testing.T) {
	var seenLabel string
	e := reverb.New(reverb.WithRunInterceptor(Tracing(
		WithRunAttributes(func(r *reverb.Runner) []attribute.KeyValue {
			seenLabel = r.Label()
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)))
	defer e.Close()

	e.RunComputation(func() any { return nil }, reverb.WithLabel("extract-me"))

	if seenLabel != "extract-me" {
		t.Errorf("expected extractor to see the runner, got label %q", seenLabel)
	}
}

func TestTracingPanicPropagates(t *testing.T) {
	e := reverb.New(reverb.WithRunInterceptor(Tracing()))
	defer e.Close()

	r := e.RunComputation(func() any {
		panic("computation failed")
	}, reverb.Lazy())

	defer func() {
		p := recover()
		if p == nil {
			t.Fatal("expected the panic to propagate through the span")
		}
		if msg, ok := p.(string); !ok || msg != "computation failed" {
			t.Errorf("expected the original panic value, got %v", p)
		}
	}()
	r.Run()
}
