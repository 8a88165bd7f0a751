package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dipscan/internal/universe"
	"github.com/wonny/dipscan/pkg/logger"
)

// UniverseRefreshJob rebuilds the validated ticker universe. The
// snapshot ages out after a day, and the freshness window makes an
// early run a no-op anyway.
type UniverseRefreshJob struct {
	validator *universe.Validator
	logger    *logger.Logger
	schedule  string
}

// NewUniverseRefreshJob creates the job
func NewUniverseRefreshJob(validator *universe.Validator, log *logger.Logger, schedule string) *UniverseRefreshJob {
	if schedule == "" {
		schedule = "0 0 6 * * *" // daily 06:00
	}
	return &UniverseRefreshJob{
		validator: validator,
		logger:    log,
		schedule:  schedule,
	}
}

// Name returns the job name
func (j *UniverseRefreshJob) Name() string { return "universe_refresh" }

// Schedule returns the cron expression
func (j *UniverseRefreshJob) Schedule() string { return j.schedule }

// Run refreshes the universe if the cached one has aged out
func (j *UniverseRefreshJob) Run(ctx context.Context) error {
	result, err := j.validator.LoadOrRebuild(ctx)
	if err != nil {
		return fmt.Errorf("universe refresh: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"valid":   result.TotalValid,
		"invalid": result.TotalInvalid,
	}).Info("Universe refresh finished")

	return nil
}
