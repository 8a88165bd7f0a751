package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dipscan",
	Short: "dipscan - quality dip screening for US equities",
	Long: `dipscan Unified CLI

Tiered stock screening pipeline: validate the ticker universe, rank
it into a master list, slice a daily screening list, collect market
data, and score every name for quality dips.

Usage:
  go run ./cmd/dipscan [command]

Examples:
  go run ./cmd/dipscan universe
  go run ./cmd/dipscan collect
  go run ./cmd/dipscan scan
  go run ./cmd/dipscan api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default from STRATEGY_FILE or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
