package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Validate the ticker universe",
	Long: `Fetches candidate tickers from the public sources and probes each
one against the data provider. Only names that return real price
history survive.

A fresh cached universe is reused; pass --rebuild to force a full
revalidation.

Example:
  go run ./cmd/dipscan universe
  go run ./cmd/dipscan universe --rebuild`,
	RunE: runUniverse,
}

var universeRebuild bool

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.Flags().BoolVar(&universeRebuild, "rebuild", false, "ignore the cached universe and revalidate")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Universe Validation ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Validate (or reuse the cached snapshot)
	start := time.Now()
	loadFn := app.validator.LoadOrRebuild
	if universeRebuild {
		loadFn = app.validator.Rebuild
	}

	uni, err := loadFn(ctx)
	if err != nil {
		return fmt.Errorf("universe validation failed: %w", err)
	}

	// 3. Report
	fmt.Printf("Valid tickers:   %d\n", uni.TotalValid)
	fmt.Printf("Invalid tickers: %d\n", uni.TotalInvalid)
	fmt.Printf("Elapsed:         %s\n", time.Since(start).Round(time.Second))

	return nil
}
