package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/scoring"
)

// paramsCmd represents the params command
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect or reset the scoring parameters",
	Long: `The scoring layer weights, thresholds, and sweet-spot windows are
persisted alongside the cache so a tuned set survives restarts.

Example:
  go run ./cmd/dipscan params show
  go run ./cmd/dipscan params reset`,
}

var paramsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active scoring parameters",
	RunE:  runParamsShow,
}

var paramsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default scoring parameters",
	RunE:  runParamsReset,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsShowCmd)
	paramsCmd.AddCommand(paramsResetCmd)
}

func runParamsShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(app.engine.Params(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func runParamsReset(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	if err := app.paramsRepo.Save(scoring.DefaultParams()); err != nil {
		return fmt.Errorf("failed to reset parameters: %w", err)
	}

	fmt.Println("Scoring parameters reset to defaults")
	return nil
}
