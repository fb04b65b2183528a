package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reverb-bench",
		Short: "Load generator and profiler for the reverb tracking engine",
		Long: `reverb-bench drives synthetic reactive workloads against the engine
and reports write latency, recomputation throughput and GC cost.

Scenarios:
  chain    writes at the base of a derived-value chain
  fanout   one box observed by many computations
  storm    concurrent writers across many boxes

Every flag can also be set through the environment using the
REVERB_BENCH_ prefix, e.g. REVERB_BENCH_PROFILE=stress or
REVERB_BENCH_MAX_PROCS=4.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		listCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
