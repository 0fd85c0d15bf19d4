package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tiermem",
	Short: "Tiered in-process cache engine",
	Long:  "tiermem is a three-level (hot/warm/cold) in-memory cache with adaptive promotion, weak-reference tracking and a memory-pressure control loop.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(defaultsCmd)
}
