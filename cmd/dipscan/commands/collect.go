package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect market data for the screening list",
	Long: `Fetches price history, fundamentals, and a fresh quote for every
name on the screening list. Collection checkpoints per batch, so an
interrupted run resumes where it stopped instead of burning quota on
names it already has.

Requires a screening list (run 'screen' first, or let this command
build one from the master list).

Example:
  go run ./cmd/dipscan collect`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Data Collection ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Resolve the screening list
	list, err := app.screenBuilder.LoadOrRebuild()
	if err != nil {
		return fmt.Errorf("no screening list available: %w", err)
	}

	// 3. Collect
	start := time.Now()
	result, err := app.collector.Collect(ctx, list.Tickers)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	// 4. Report
	fmt.Printf("Requested:  %d\n", result.Requested)
	fmt.Printf("Collected:  %d\n", result.Collected)
	fmt.Printf("Resumed:    %d\n", result.Resumed)
	fmt.Printf("Denylisted: %d\n", result.Denylisted)
	fmt.Printf("Failed:     %d\n", result.Failed)
	fmt.Printf("Elapsed:    %s\n", time.Since(start).Round(time.Second))

	return nil
}
