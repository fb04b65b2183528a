package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// MetricsConfig configures the Prometheus metrics collection.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reverb").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics collection.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the run duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "reverb",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for one attached engine.
type metrics struct {
	recordsTotal    prometheus.Counter
	notifiesTotal   prometheus.Counter
	notifyFanout    prometheus.Histogram
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	violationsTotal prometheus.Counter

	// collectors is everything registered, for unregistering on detach.
	collectors []prometheus.Collector
}

// initMetrics initializes the Prometheus metrics for an engine.
func initMetrics(config MetricsConfig, e *reverb.Engine) *metrics {
	factory := promauto.With(config.Registry)

	m := &metrics{
		recordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "records_total",
			Help:        "Total number of new dependency edges recorded",
			ConstLabels: config.ConstLabels,
		}),

		notifiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifies_total",
			Help:        "Total number of notifications delivered to tracked locations",
			ConstLabels: config.ConstLabels,
		}),

		notifyFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_fanout",
			Help:        "Number of computations reached per notification",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runs_total",
			Help:        "Total number of computation runs by label",
			ConstLabels: config.ConstLabels,
		}, []string{"label"}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "run_duration_seconds",
			Help:        "Computation run duration in seconds by label",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"label"}),

		violationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "violations_total",
			Help:        "Total number of discarded writes to read-only state",
			ConstLabels: config.ConstLabels,
		}),
	}

	m.collectors = []prometheus.Collector{
		m.recordsTotal,
		m.notifiesTotal,
		m.notifyFanout,
		m.runsTotal,
		m.runDuration,
		m.violationsTotal,
	}

	// Graph gauges read the engine's bookkeeping at scrape time.
	gauges := []struct {
		name string
		help string
		read func(reverb.Stats) int
	}{
		{"graph_sources", "Number of sources with at least one tracked location",
			func(s reverb.Stats) int { return s.Sources }},
		{"graph_locations", "Number of tracked (source, key) locations",
			func(s reverb.Stats) int { return s.Locations }},
		{"graph_edges", "Number of dependency edges",
			func(s reverb.Stats) int { return s.Edges }},
		{"graph_runners", "Number of distinct computations in the graph",
			func(s reverb.Stats) int { return s.Runners }},
		{"tracked_objects", "Number of cached object wrappers",
			func(s reverb.Stats) int { return s.TrackedObjects }},
		{"tracked_lists", "Number of cached list wrappers",
			func(s reverb.Stats) int { return s.TrackedLists }},
	}
	for _, g := range gauges {
		read := g.read
		gf := factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        g.name,
			Help:        g.help,
			ConstLabels: config.ConstLabels,
		}, func() float64 {
			return float64(read(e.Stats()))
		})
		m.collectors = append(m.collectors, gf)
	}

	return m
}

// handle routes one engine event to the metrics.
func (m *metrics) handle(ev reverb.Event) {
	switch ev.Kind {
	case reverb.EventRecord:
		m.recordsTotal.Inc()

	case reverb.EventNotify:
		m.notifiesTotal.Inc()
		m.notifyFanout.Observe(float64(ev.Fanout))

	case reverb.EventRun:
		label := ev.Label
		if label == "" {
			label = "unlabeled"
		}
		m.runsTotal.WithLabelValues(label).Inc()
		m.runDuration.WithLabelValues(label).Observe(ev.Duration.Seconds())

	case reverb.EventViolation:
		m.violationsTotal.Inc()
	}
}

// Attach collects Prometheus metrics from an engine's event tap and returns
// a function that detaches the observer and unregisters the metrics.
//
// Metrics collected:
//   - reverb_records_total: Counter of new dependency edges
//   - reverb_notifies_total: Counter of notifications delivered
//   - reverb_notify_fanout: Histogram of computations reached per notification
//   - reverb_runs_total: Counter of computation runs by label
//   - reverb_run_duration_seconds: Histogram of run duration by label
//   - reverb_violations_total: Counter of discarded writes
//   - reverb_graph_sources, _locations, _edges, _runners: Graph gauges
//   - reverb_tracked_objects, _tracked_lists: Wrapper cache gauges
//
// Example:
//
//	e := reverb.New()
//	detach := instrument.Attach(e,
//	    instrument.WithNamespace("myapp"),
//	)
//	defer detach()
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Attach(e *reverb.Engine, opts ...MetricsOption) func() {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := initMetrics(config, e)
	cancel := e.Observe(m.handle)

	return func() {
		cancel()
		for _, c := range m.collectors {
			config.Registry.Unregister(c)
		}
	}
}
