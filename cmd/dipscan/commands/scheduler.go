package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/scheduler"
	"github.com/wonny/dipscan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the pipeline on its cron schedules",
	Long: `Starts the long-running scheduler. Each job fires on its strategy
schedule (or its built-in default) and retries on failure:

  universe_refresh     daily universe revalidation
  master_list_refresh  daily master list rebuild
  daily_scan           screen, collect, and scan after the close

Example:
  go run ./cmd/dipscan scheduler
  go run ./cmd/dipscan scheduler --run daily_scan`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run", "", "run one job immediately and exit")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan Scheduler ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	// 2. Register jobs with the strategy schedules
	sched := scheduler.New(app.log)
	jobList := []scheduler.Job{
		jobs.NewUniverseRefreshJob(app.validator, app.log, app.strategy.Schedules.UniverseRefresh),
		jobs.NewMasterListRefreshJob(app.universeRepo, app.masterBuilder, app.log, app.strategy.Schedules.MasterListRefresh),
		jobs.NewDailyScanJob(app.screenBuilder, app.collector, app.scanner, app.log, app.strategy.Schedules.DailyScan),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
		fmt.Printf("Registered %-20s %s\n", job.Name(), job.Schedule())
	}

	// 3. One-shot mode
	if schedulerRunNow != "" {
		return sched.RunJob(schedulerRunNow)
	}

	// 4. Run until signalled
	sched.Start()
	defer sched.Stop()
	fmt.Printf("Scheduler running with jobs: %s\n", strings.Join(sched.GetAllJobs(), ", "))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	app.log.WithField("signal", sig.String()).Info("Scheduler stopping")
	return nil
}
