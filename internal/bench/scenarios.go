package bench

import (
	"context"
	"time"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// stormReadSpan is how many boxes each storm reader depends on.
const stormReadSpan = 8

// runChain builds a chain of derived values over one base box, with a
// single computation subscribed at the end. A write at the base invalidates
// the whole chain; the subscriber's re-read recomputes it. Measures how
// staleness propagation and lazy recomputation scale with depth.
func runChain(ctx context.Context, cfg Config, c *counters, samples chan<- time.Duration) (reverb.Stats, error) {
	e, done := cfg.engine()
	defer done()

	base := e.Box(0)
	last := reverb.Derive(e, func() int {
		c.runs.Add(1)
		return base.Value().(int) + 1
	})
	for i := 1; i < cfg.ChainDepth; i++ {
		prev := last
		last = reverb.Derive(e, func() int {
			c.runs.Add(1)
			return prev.Value() + 1
		})
	}

	end := last
	r := e.RunComputation(func() any {
		c.runs.Add(1)
		return end.Value()
	})
	defer r.Dispose()

	writeLoop(ctx, cfg, c, samples, func(i int) {
		base.Set(i)
	})
	return e.Stats(), nil
}

// runFanout subscribes many computations to one box and writes to it.
// Measures notification delivery cost as fanout grows.
func runFanout(ctx context.Context, cfg Config, c *counters, samples chan<- time.Duration) (reverb.Stats, error) {
	e, done := cfg.engine()
	defer done()

	base := e.Box(0)
	for i := 0; i < cfg.Fanout; i++ {
		e.RunComputation(func() any {
			c.runs.Add(1)
			return base.Value()
		})
	}

	writeLoop(ctx, cfg, c, samples, func(i int) {
		base.Set(i)
	})
	return e.Stats(), nil
}

// runStorm spreads concurrent writers across many boxes while readers each
// depend on a window of them. Measures lock contention on the graph and
// partial-overlap invalidation.
func runStorm(ctx context.Context, cfg Config, c *counters, samples chan<- time.Duration) (reverb.Stats, error) {
	e, done := cfg.engine()
	defer done()

	boxes := make([]*reverb.Box, cfg.Boxes)
	for i := range boxes {
		boxes[i] = e.Box(0)
	}

	span := stormReadSpan
	if span > len(boxes) {
		span = len(boxes)
	}
	for r := 0; r < cfg.Fanout; r++ {
		first := (r * span) % len(boxes)
		e.RunComputation(func() any {
			c.runs.Add(1)
			sum := 0
			for k := 0; k < span; k++ {
				sum += boxes[(first+k)%len(boxes)].Value().(int)
			}
			return sum
		})
	}

	writeLoop(ctx, cfg, c, samples, func(i int) {
		boxes[i%len(boxes)].Set(i)
	})
	return e.Stats(), nil
}
