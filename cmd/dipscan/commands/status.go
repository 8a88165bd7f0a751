package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/api"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show data freshness for every pipeline tier",
	Long: `Reports the age of each cached artifact against its freshness
window, so you can see at a glance which stage needs to run.

Example:
  go run ./cmd/dipscan status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Pipeline Status ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	// 2. Probe each tier
	fmt.Printf("%-16s %-12s %-12s %s\n", "TIER", "AGE", "MAX AGE", "STATE")
	for _, probe := range app.freshnessProbes() {
		age, err := probe.Age()
		if err != nil {
			fmt.Printf("%-16s %-12s %-12s %s\n", probe.Name, "-", probe.MaxAge.Round(time.Hour), "missing")
			continue
		}

		state := "fresh"
		if age > probe.MaxAge {
			state = "stale"
		}
		fmt.Printf("%-16s %-12s %-12s %s\n", probe.Name, age.Round(time.Minute), probe.MaxAge.Round(time.Hour), state)
	}

	return nil
}

// freshnessProbes lists every cached artifact with its freshness
// window. Shared by the status command and the API status endpoint.
func (a *app) freshnessProbes() []api.FreshnessProbe {
	s := a.strategy
	return []api.FreshnessProbe{
		{
			Name:   "universe",
			MaxAge: time.Duration(s.Universe.MaxAgeDays) * 24 * time.Hour,
			Age:    a.universeRepo.Age,
		},
		{
			Name:   "master_list",
			MaxAge: time.Duration(s.MasterList.MaxAgeDays) * 24 * time.Hour,
			Age:    a.masterRepo.Age,
		},
		{
			Name:   "screening_list",
			MaxAge: time.Duration(s.Screening.MaxAgeHours) * time.Hour,
			Age:    func() (time.Duration, error) { return a.screenRepo.Age(s.Screening.Size) },
		},
		{
			Name:   "market_data",
			MaxAge: 24 * time.Hour,
			Age:    a.collectorRepo.DataAge,
		},
		{
			Name:   "scores",
			MaxAge: 24 * time.Hour,
			Age:    a.scanRepo.SnapshotAge,
		},
	}
}
