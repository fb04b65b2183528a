package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reverb-dev/reverb/internal/bench"
	"github.com/reverb-dev/reverb/pkg/inspect"
	"github.com/reverb-dev/reverb/pkg/instrument"
	"github.com/reverb-dev/reverb/pkg/reverb"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark scenario",
		Long: `Run a benchmark scenario against a fresh engine.

The profile picks the workload size; individual flags override single
knobs. The summary goes to stderr; --json writes the full report to a
file, or to stdout with '-'.

Examples:
  reverb-bench run
  reverb-bench run --profile=stress --scenario=fanout
  reverb-bench run --duration=5s --writers=2 --json=-
  reverb-bench run --inspect=localhost:6060`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}

	flags := cmd.Flags()
	flags.StringP("profile", "p", "standard", "workload size: fast|standard|stress")
	flags.StringP("scenario", "s", "chain", "load shape: chain|fanout|storm")
	flags.DurationP("duration", "d", 0, "run duration (0 = profile default)")
	flags.Int("writers", 0, "concurrent writer goroutines (0 = profile default)")
	flags.Int("depth", 0, "derived chain depth (0 = profile default)")
	flags.Int("fanout", 0, "subscribers per source (0 = profile default)")
	flags.Int("boxes", 0, "boxes in the storm scenario (0 = profile default)")
	flags.Int("max-procs", 0, "GOMAXPROCS cap (0 = profile default)")
	flags.String("mem-limit", "", "GOMEMLIMIT, e.g. 2GiB (empty = profile default)")
	flags.String("json", "", "JSON report path ('-' for stdout, empty = summary only)")
	flags.String("inspect", "", "serve the live inspector on this address during the run")

	for _, name := range []string{
		"profile", "scenario", "duration", "writers", "depth",
		"fanout", "boxes", "max-procs", "mem-limit", "json", "inspect",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix("REVERB_BENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return cmd
}

func runBench() error {
	profileName := strings.ToLower(strings.TrimSpace(viper.GetString("profile")))
	cfg, err := bench.FromProfile(profileName)
	if err != nil {
		return err
	}
	profile := bench.Profiles[profileName]

	cfg.Scenario = strings.ToLower(strings.TrimSpace(viper.GetString("scenario")))
	if _, ok := bench.Lookup(cfg.Scenario); !ok {
		return fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}

	if d := viper.GetDuration("duration"); d > 0 {
		cfg.Duration = d
	}
	if n := viper.GetInt("writers"); n > 0 {
		cfg.Writers = n
	}
	if n := viper.GetInt("depth"); n > 0 {
		cfg.ChainDepth = n
	}
	if n := viper.GetInt("fanout"); n > 0 {
		cfg.Fanout = n
	}
	if n := viper.GetInt("boxes"); n > 0 {
		cfg.Boxes = n
	}

	maxProcs := profile.MaxProcs
	if n := viper.GetInt("max-procs"); n > 0 {
		maxProcs = n
	}
	if maxProcs > 0 {
		runtime.GOMAXPROCS(maxProcs)
	}

	memLimit := profile.MemLimitBytes
	if s := strings.TrimSpace(viper.GetString("mem-limit")); s != "" {
		limit, err := parseBytes(s)
		if err != nil {
			return fmt.Errorf("invalid --mem-limit: %w", err)
		}
		memLimit = limit
	}
	if memLimit > 0 {
		debug.SetMemoryLimit(memLimit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, finishing up...")
		cancel()
	}()

	// With --inspect the run uses a shared engine so the inspector and the
	// Prometheus gauges see the live graph.
	if addr := strings.TrimSpace(viper.GetString("inspect")); addr != "" {
		e := reverb.New()
		defer e.Close()

		detach := instrument.Attach(e)
		defer detach()

		ins := inspect.New(e, inspect.WithMetricsHandler(promhttp.Handler()))
		go ins.Start(ctx, addr)
		defer ins.Close()

		cfg.Engine = e
	}

	report, err := bench.Run(ctx, cfg)
	if err != nil {
		return err
	}

	bench.WriteSummary(os.Stderr, report)
	if path := strings.TrimSpace(viper.GetString("json")); path != "" {
		if err := bench.WriteJSON(path, report); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

// parseBytes parses sizes like "512MB" or "2GiB" into bytes.
func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "tb":
		multiplier = 1e12
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	case "tib":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}
