package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Slice the daily screening list",
	Long: `Takes the top of the master list as today's working set. The
screening list is what the collector fetches and the scanner scores.

Requires a master list (run 'masterlist' first).

Example:
  go run ./cmd/dipscan screen`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Screening List ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	// 2. Build (or reuse today's list)
	list, err := app.screenBuilder.LoadOrRebuild()
	if err != nil {
		return fmt.Errorf("screening list build failed: %w", err)
	}

	// 3. Report
	fmt.Printf("Size:    %d\n", len(list.Tickers))
	fmt.Printf("Created: %s\n", list.CreatedAt.Format("2006-01-02 15:04:05"))

	return nil
}
