package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/scan"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the top scores to CSV",
	Long: `Writes the top N names from the latest scan snapshot to a dated CSV
under the output directory. The scan command already does this; use
export to regenerate the file with a different N.

Example:
  go run ./cmd/dipscan export
  go run ./cmd/dipscan export --top 50`,
	RunE: runExport,
}

var exportTop int

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().IntVar(&exportTop, "top", 0, "rows to export (default: strategy top_n)")
}

func runExport(cmd *cobra.Command, args []string) error {
	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	// 2. Load the latest snapshot
	snap, err := app.scanRepo.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("no scan snapshot, run 'scan' first: %w", err)
	}

	// 3. Export
	n := exportTop
	if n <= 0 {
		n = app.strategy.Scan.TopN
	}
	path, err := app.scanRepo.ExportTopCSV(scan.Ranked(snap), n, time.Now())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported top %d to %s\n", n, path)
	return nil
}
