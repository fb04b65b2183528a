package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reverb-dev/reverb/internal/bench"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios and profiles",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Scenarios:")
			for _, sc := range bench.Scenarios() {
				fmt.Printf("  %-8s %s\n", sc.Name, sc.Description)
			}
			fmt.Println()

			fmt.Println("Profiles:")
			for _, name := range bench.ProfileNames() {
				p := bench.Profiles[name]
				fmt.Printf("  %-9s %s, %d writers, depth %d, fanout %d, %d boxes\n",
					p.Name, p.Duration, p.Writers, p.ChainDepth, p.Fanout, p.Boxes)
			}
		},
	}
}
