package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dipscan/internal/collector"
	"github.com/wonny/dipscan/internal/scan"
	"github.com/wonny/dipscan/internal/screening"
	"github.com/wonny/dipscan/pkg/logger"
)

// DailyScanJob runs the daily tail of the pipeline: refresh the
// screening list, collect data for it, then score everything. Each
// stage checkpoints, so the scheduler's retry resumes a partial run
// instead of burning quota on refetches.
type DailyScanJob struct {
	screening *screening.Builder
	collector *collector.Collector
	scanner   *scan.Scanner
	logger    *logger.Logger
	schedule  string
}

// NewDailyScanJob creates the job
func NewDailyScanJob(sb *screening.Builder, c *collector.Collector, s *scan.Scanner, log *logger.Logger, schedule string) *DailyScanJob {
	if schedule == "" {
		schedule = "0 30 17 * * 1-5" // weekdays 17:30, after the close
	}
	return &DailyScanJob{
		screening: sb,
		collector: c,
		scanner:   s,
		logger:    log,
		schedule:  schedule,
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string { return "daily_scan" }

// Schedule returns the cron expression
func (j *DailyScanJob) Schedule() string { return j.schedule }

// Run executes screening, collection, and scan in order
func (j *DailyScanJob) Run(ctx context.Context) error {
	list, err := j.screening.LoadOrRebuild()
	if err != nil {
		return fmt.Errorf("daily scan, screening stage: %w", err)
	}

	collected, err := j.collector.Collect(ctx, list.Tickers)
	if err != nil {
		return fmt.Errorf("daily scan, collect stage: %w", err)
	}

	result, err := j.scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("daily scan, scan stage: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"collected":  collected.Collected,
		"resumed":    collected.Resumed,
		"scanned":    result.Scanned,
		"new_alerts": result.NewAlerts,
	}).Info("Daily scan finished")

	return nil
}
