package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/dipscan/internal/masterlist"
	"github.com/wonny/dipscan/internal/universe"
	"github.com/wonny/dipscan/pkg/logger"
)

// MasterListRefreshJob rebuilds the quality-ranked master list from
// the validated universe when it has aged past its monthly window.
type MasterListRefreshJob struct {
	universeRepo *universe.Repository
	builder      *masterlist.Builder
	logger       *logger.Logger
	schedule     string
}

// NewMasterListRefreshJob creates the job
func NewMasterListRefreshJob(universeRepo *universe.Repository, builder *masterlist.Builder, log *logger.Logger, schedule string) *MasterListRefreshJob {
	if schedule == "" {
		schedule = "0 30 6 * * *" // daily 06:30, a no-op while fresh
	}
	return &MasterListRefreshJob{
		universeRepo: universeRepo,
		builder:      builder,
		logger:       log,
		schedule:     schedule,
	}
}

// Name returns the job name
func (j *MasterListRefreshJob) Name() string { return "master_list_refresh" }

// Schedule returns the cron expression
func (j *MasterListRefreshJob) Schedule() string { return j.schedule }

// Run rebuilds the master list when stale
func (j *MasterListRefreshJob) Run(ctx context.Context) error {
	uni, err := j.universeRepo.Load()
	if err != nil {
		return fmt.Errorf("master list refresh needs a universe: %w", err)
	}

	list, err := j.builder.LoadOrRebuild(ctx, uni.Tickers)
	if err != nil {
		return fmt.Errorf("master list refresh: %w", err)
	}

	j.logger.WithField("size", list.Count()).Info("Master list refresh finished")
	return nil
}
