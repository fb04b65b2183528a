package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Report is the result of one benchmark run. It marshals to stable JSON for
// storing and diffing runs.
type Report struct {
	Version    string         `json:"version"`
	Run        RunInfo        `json:"run"`
	Workload   WorkloadInfo   `json:"workload"`
	LatencyUS  LatencyInfo    `json:"latency_us"`
	Throughput ThroughputInfo `json:"throughput"`
	Engine     reverb.Stats   `json:"engine"`
	GC         GCInfo         `json:"gc"`
}

// RunInfo records where and when the run happened.
type RunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

// WorkloadInfo records the effective configuration.
type WorkloadInfo struct {
	Scenario   string `json:"scenario"`
	Profile    string `json:"profile,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Writers    int    `json:"writers"`
	ChainDepth int    `json:"chain_depth"`
	Fanout     int    `json:"fanout"`
	Boxes      int    `json:"boxes"`
}

// LatencyInfo is the write-latency distribution in microseconds, measured
// from Set until every synchronous subscriber settled.
type LatencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// ThroughputInfo summarizes write and recomputation rates.
type ThroughputInfo struct {
	WritesTotal  uint64  `json:"writes_total"`
	WritesPerSec float64 `json:"writes_per_sec"`
	RunsTotal    uint64  `json:"runs_total"`
	RunsPerWrite float64 `json:"runs_per_write"`
}

// GCInfo summarizes process-wide allocation and collection cost.
type GCInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

func buildReport(
	cfg Config,
	elapsed time.Duration,
	latencies []time.Duration,
	c *counters,
	stats reverb.Stats,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) Report {
	writesTotal := c.writes.Load()
	runsTotal := c.runs.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	writesPerSec := float64(writesTotal) / elapsedSeconds
	runsPerWrite := 0.0
	if writesTotal > 0 {
		runsPerWrite = float64(runsTotal) / float64(writesTotal)
	}

	latency := LatencyInfo{}
	if len(latencies) > 0 {
		latency = LatencyInfo{
			Min: us(latencies[0]),
			P50: us(percentile(latencies, 0.50)),
			P95: us(percentile(latencies, 0.95)),
			P99: us(percentile(latencies, 0.99)),
			Max: us(latencies[len(latencies)-1]),
		}
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	return Report{
		Version: "1",
		Run: RunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: WorkloadInfo{
			Scenario:   cfg.Scenario,
			Profile:    cfg.Profile,
			DurationMS: cfg.Duration.Milliseconds(),
			Writers:    cfg.Writers,
			ChainDepth: cfg.ChainDepth,
			Fanout:     cfg.Fanout,
			Boxes:      cfg.Boxes,
		},
		LatencyUS: latency,
		Throughput: ThroughputInfo{
			WritesTotal:  writesTotal,
			WritesPerSec: writesPerSec,
			RunsTotal:    runsTotal,
			RunsPerWrite: runsPerWrite,
		},
		Engine: stats,
		GC: GCInfo{
			AllocMB:       float64(afterMetrics.heapAllocsBytes-beforeMetrics.heapAllocsBytes) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  msf(pauseTotal),
			PauseAvgMS:    msf(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
	}
}

// WriteSummary renders the report for humans.
func WriteSummary(w io.Writer, report Report) {
	fmt.Fprintln(w, "=== Reverb Engine Benchmark ===")
	fmt.Fprintf(w, "Scenario: %s\n", report.Workload.Scenario)
	if report.Workload.Profile != "" {
		fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	}
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Writers: %d\n", report.Workload.Writers)
	fmt.Fprintf(w, "Chain depth: %d\n", report.Workload.ChainDepth)
	fmt.Fprintf(w, "Fanout: %d\n", report.Workload.Fanout)
	fmt.Fprintf(w, "Boxes: %d\n", report.Workload.Boxes)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total writes: %d\n", report.Throughput.WritesTotal)
	fmt.Fprintf(w, "Throughput: %.0f writes/s\n", report.Throughput.WritesPerSec)
	fmt.Fprintf(w, "Recomputations: %d (%.2f per write)\n", report.Throughput.RunsTotal, report.Throughput.RunsPerWrite)
	fmt.Fprintln(w)

	if report.LatencyUS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Write latency (Set -> subscribers settled):")
		fmt.Fprintf(w, "  min: %.1f us\n", report.LatencyUS.Min)
		fmt.Fprintf(w, "  p50: %.1f us\n", report.LatencyUS.P50)
		fmt.Fprintf(w, "  p95: %.1f us\n", report.LatencyUS.P95)
		fmt.Fprintf(w, "  p99: %.1f us\n", report.LatencyUS.P99)
		fmt.Fprintf(w, "  max: %.1f us\n", report.LatencyUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Engine graph at end of run:")
	fmt.Fprintf(w, "  sources:   %d\n", report.Engine.Sources)
	fmt.Fprintf(w, "  locations: %d\n", report.Engine.Locations)
	fmt.Fprintf(w, "  edges:     %d\n", report.Engine.Edges)
	fmt.Fprintf(w, "  runners:   %d\n", report.Engine.Runners)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

// WriteJSON writes the report to path, or to stdout for "-".
func WriteJSON(path string, report Report) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func msf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
