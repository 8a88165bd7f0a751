package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dipscan/internal/api"
	"github.com/wonny/dipscan/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API server",
	Long: `Serves the scan results over HTTP:

  GET  /health              liveness
  GET  /api/scores          ranked scores (?min_score=, ?limit=)
  GET  /api/scores/{ticker} one score record
  GET  /api/watchlist       current watchlist
  GET  /api/status          data freshness per tier
  POST /api/tasks           trigger a pipeline task
  GET  /api/tasks           task run history
  GET  /ws/progress         live progress over WebSocket

Example:
  go run ./cmd/dipscan api
  PORT=9000 go run ./cmd/dipscan api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dipscan API Server ===")

	// 1. Wire dependencies
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Triggerable tasks reuse the scheduler jobs, so an API kick
	// behaves exactly like the cron run it replaces
	uniJob := jobs.NewUniverseRefreshJob(app.validator, app.log, app.strategy.Schedules.UniverseRefresh)
	mlJob := jobs.NewMasterListRefreshJob(app.universeRepo, app.masterBuilder, app.log, app.strategy.Schedules.MasterListRefresh)
	scanJob := jobs.NewDailyScanJob(app.screenBuilder, app.collector, app.scanner, app.log, app.strategy.Schedules.DailyScan)

	tasks := api.NewTaskRegistry(ctx, map[string]api.TaskFunc{
		uniJob.Name():  uniJob.Run,
		mlJob.Name():   mlJob.Run,
		scanJob.Name(): scanJob.Run,
	}, app.log)

	// 3. Router and server
	handlers := api.NewHandlers(app.scanRepo, app.freshnessProbes(), tasks, app.log)
	stream := api.NewProgressStream(app.bus, app.log)
	server := api.New(app.cfg, app.log, api.NewRouter(handlers, stream, app.log))

	// 4. Start serving
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	fmt.Printf("Listening on :%s\n", app.cfg.Port)

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	// 6. Graceful shutdown
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
