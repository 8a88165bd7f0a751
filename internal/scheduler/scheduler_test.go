package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	ran      chan struct{}
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(ctx context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	logCfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	return New(logger.New(logCfg))
}

func TestAddJob_RejectsDuplicates(t *testing.T) {
	s := newTestScheduler(t)
	job := &stubJob{name: "daily_scan", schedule: "@daily", ran: make(chan struct{}, 1)}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Equal(t, []string{"daily_scan"}, s.GetAllJobs())
}

func TestAddJob_RejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(t)
	job := &stubJob{name: "broken", schedule: "not a cron expr", ran: make(chan struct{}, 1)}

	assert.Error(t, s.AddJob(job))
}

func TestRunJob_RecordsHistory(t *testing.T) {
	s := newTestScheduler(t)
	job := &stubJob{name: "daily_scan", schedule: "@daily", ran: make(chan struct{}, 1)}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("daily_scan"))

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	require.Eventually(t, func() bool {
		history, err := s.GetJobHistory("daily_scan")
		return err == nil && len(history.Results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	history, err := s.GetJobHistory("daily_scan")
	require.NoError(t, err)
	assert.True(t, history.Results[0].Success)

	stats := s.GetJobStats()
	assert.Equal(t, 1, stats["daily_scan"].SuccessCount)
	assert.InDelta(t, 1.0, stats["daily_scan"].SuccessRate, 1e-9)
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistory_TrimsToHundred(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(10), 10)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.01)
}
