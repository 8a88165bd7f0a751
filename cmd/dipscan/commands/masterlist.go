package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// masterListCmd represents the masterlist command
var masterListCmd = &cobra.Command{
	Use:   "masterlist",
	Short: "Build the quality-ranked master list",
	Long: `Filters the validated universe by market cap, volume, and exchange,
then ranks the survivors by a liquidity and size quality score. The
top names become the master list the daily pipeline draws from.

Requires a validated universe (run 'universe' first).

Example:
  go run ./cmd/dipscan masterlist`,
	RunE: runMasterList,
}

func init() {
	rootCmd.AddCommand(masterListCmd)
}

func runMasterList(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Master List Build ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Load the validated universe
	uni, err := app.universeRepo.Load()
	if err != nil {
		return fmt.Errorf("no validated universe, run 'universe' first: %w", err)
	}

	// 3. Build (or reuse the cached list)
	start := time.Now()
	list, err := app.masterBuilder.LoadOrRebuild(ctx, uni.Tickers)
	if err != nil {
		return fmt.Errorf("master list build failed: %w", err)
	}

	// 4. Report
	fmt.Printf("Candidates: %d\n", list.Stats.Candidates)
	fmt.Printf("Filtered:   %d\n", list.Stats.Filtered)
	fmt.Printf("Ranked:     %d\n", len(list.Stocks))
	fmt.Printf("Elapsed:    %s\n", time.Since(start).Round(time.Second))

	return nil
}
