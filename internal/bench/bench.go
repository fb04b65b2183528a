package bench

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

const gib = int64(1024 * 1024 * 1024)

// Profile is a named workload size.
type Profile struct {
	Name          string
	Duration      time.Duration
	Writers       int
	ChainDepth    int
	Fanout        int
	Boxes         int
	MaxProcs      int
	MemLimitBytes int64
}

// Profiles are the built-in workload sizes. MaxProcs and MemLimitBytes are
// hints for the caller to apply process-wide before running.
var Profiles = map[string]Profile{
	"fast": {
		Name:       "fast",
		Duration:   5 * time.Second,
		Writers:    4,
		ChainDepth: 8,
		Fanout:     16,
		Boxes:      32,
	},
	"standard": {
		Name:       "standard",
		Duration:   15 * time.Second,
		Writers:    8,
		ChainDepth: 32,
		Fanout:     64,
		Boxes:      128,
	},
	"stress": {
		Name:          "stress",
		Duration:      30 * time.Second,
		Writers:       16,
		ChainDepth:    64,
		Fanout:        256,
		Boxes:         512,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

// ProfileNames returns the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config describes one benchmark run.
type Config struct {
	Scenario   string
	Profile    string
	Duration   time.Duration
	Writers    int
	ChainDepth int
	Fanout     int
	Boxes      int

	// Engine, when set, is used instead of a private engine. The caller owns
	// its lifecycle; this is how the inspector watches a run.
	Engine *reverb.Engine
}

// engine returns the engine for a run and a cleanup for it.
func (cfg Config) engine() (*reverb.Engine, func()) {
	if cfg.Engine != nil {
		return cfg.Engine, func() {}
	}
	e := reverb.New()
	return e, e.Close
}

// FromProfile returns the config for a built-in profile.
func FromProfile(name string) (Config, error) {
	p, ok := Profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown profile %q", name)
	}
	return Config{
		Profile:    p.Name,
		Duration:   p.Duration,
		Writers:    p.Writers,
		ChainDepth: p.ChainDepth,
		Fanout:     p.Fanout,
		Boxes:      p.Boxes,
	}, nil
}

func (cfg Config) withDefaults() Config {
	if cfg.Scenario == "" {
		cfg.Scenario = "chain"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	if cfg.Writers < 1 {
		cfg.Writers = 1
	}
	if cfg.ChainDepth < 1 {
		cfg.ChainDepth = 1
	}
	if cfg.Fanout < 1 {
		cfg.Fanout = 1
	}
	if cfg.Boxes < 1 {
		cfg.Boxes = 1
	}
	return cfg
}

// Scenario is a named load shape.
type Scenario struct {
	Name        string
	Description string

	run func(ctx context.Context, cfg Config, c *counters, samples chan<- time.Duration) (reverb.Stats, error)
}

var scenarios = []Scenario{
	{
		Name:        "chain",
		Description: "writes at the base of a derived-value chain, one subscriber at the end",
		run:         runChain,
	},
	{
		Name:        "fanout",
		Description: "writes to one box observed by many computations",
		run:         runFanout,
	},
	{
		Name:        "storm",
		Description: "concurrent writers across many boxes with overlapping readers",
		run:         runStorm,
	},
}

// Scenarios returns the available scenarios, sorted by name.
func Scenarios() []Scenario {
	out := append([]Scenario(nil), scenarios...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

type counters struct {
	writes atomic.Uint64
	runs   atomic.Uint64
}

// Run executes the configured scenario and returns its report.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()

	sc, ok := Lookup(cfg.Scenario)
	if !ok {
		return Report{}, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Writers))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for d := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, d)
			samplesMu.Unlock()
		}
	}()

	var c counters

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	stats, err := sc.run(runCtx, cfg, &c, samplesCh)
	elapsed := time.Since(start)

	close(samplesCh)
	<-collectorDone
	if err != nil {
		return Report{}, err
	}

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return buildReport(cfg, elapsed, latencies, &c, stats, before, after, beforeMetrics, afterMetrics), nil
}

func sampleBuffer(writers int) int {
	if writers < 1 {
		return 1024
	}
	buf := writers * 256
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

// writeLoop runs cfg.Writers goroutines issuing distinct-value writes until
// the context ends. Every writer gets its own arithmetic progression so no
// write is suppressed as a same-value store.
func writeLoop(ctx context.Context, cfg Config, c *counters, samples chan<- time.Duration, write func(i int)) {
	var wg sync.WaitGroup
	wg.Add(cfg.Writers)
	for w := 0; w < cfg.Writers; w++ {
		offset := w + 1
		go func() {
			defer wg.Done()
			for i := offset; ; i += cfg.Writers {
				select {
				case <-ctx.Done():
					return
				default:
				}

				start := time.Now()
				write(i)
				c.writes.Add(1)
				samples <- time.Since(start)
			}
		}()
	}
	wg.Wait()
}
