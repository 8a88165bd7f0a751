package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score the collected data and surface dips",
	Long: `Scores every collected name through the four-layer model (quality
gate, dip signal, reversal spark, risk modifiers), then refreshes the
snapshot, watchlist, alert log, and top-N CSV export.

Scanning is pure computation over the local cache; it never calls the
data provider. Run 'collect' first for fresh data.

Example:
  go run ./cmd/dipscan scan
  go run ./cmd/dipscan scan --top 10`,
	RunE: runScan,
}

var scanTop int

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanTop, "top", 0, "rows to print after the scan (default: strategy top_n)")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Daily Scan ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Scan
	start := time.Now()
	result, err := app.scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	// 3. Report
	fmt.Printf("Scanned:     %d\n", result.Scanned)
	fmt.Printf("Skipped:     %d\n", result.Skipped)
	fmt.Printf("Watchlisted: %d\n", result.Watchlisted)
	fmt.Printf("New alerts:  %d\n", result.NewAlerts)
	if result.ExportPath != "" {
		fmt.Printf("Export:      %s\n", result.ExportPath)
	}
	fmt.Printf("Elapsed:     %s\n", time.Since(start).Round(time.Second))

	// 4. Print the leaderboard
	top := scanTop
	if top <= 0 {
		top = app.strategy.Scan.TopN
	}
	return printTopScores(app, top)
}

// printTopScores prints the highest-scoring names from the snapshot
func printTopScores(app *app, n int) error {
	snap, err := app.scanRepo.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ranked := scan.Ranked(snap)
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	fmt.Println()
	fmt.Printf("%-4s %-8s %7s %6s %-12s %-12s\n", "#", "TICKER", "SCORE", "GRADE", "REC", "DIP")
	for i, r := range ranked {
		fmt.Printf("%-4d %-8s %7.1f %6s %-12s %-12s\n",
			i+1, r.Ticker, r.Score, r.Grade, r.Recommendation, r.DipSignal.Classification)
	}

	return nil
}
