package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

type fakeScores struct {
	snap *contracts.ScoreSnapshot
	wl   *contracts.Watchlist
}

func (f *fakeScores) LoadSnapshot() (*contracts.ScoreSnapshot, error) {
	if f.snap == nil {
		return nil, jsonstore.ErrNotFound
	}
	return f.snap, nil
}

func (f *fakeScores) LoadWatchlist() (*contracts.Watchlist, error) {
	if f.wl == nil {
		return contracts.NewWatchlist(), nil
	}
	return f.wl, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func snapshotWith(scores ...contracts.ScoreRecord) *contracts.ScoreSnapshot {
	snap := &contracts.ScoreSnapshot{
		LastUpdate: time.Now(),
		Scores:     make(map[string]contracts.ScoreRecord),
	}
	for _, s := range scores {
		snap.Scores[s.Ticker] = s
	}
	return snap
}

func newTestRouter(scores ScoreSource, probes []FreshnessProbe, funcs map[string]TaskFunc) http.Handler {
	log := testLogger()
	tasks := NewTaskRegistry(context.Background(), funcs, log)
	h := NewHandlers(scores, probes, tasks, log)
	return NewRouter(h, NewProgressStream(progress.NewBus(), log), log)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeScores{}, nil, nil)
	rec := doRequest(t, router, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestGetScores_RankedAndFiltered(t *testing.T) {
	router := newTestRouter(&fakeScores{snap: snapshotWith(
		contracts.ScoreRecord{Ticker: "AAA", Score: 82},
		contracts.ScoreRecord{Ticker: "BBB", Score: 45},
		contracts.ScoreRecord{Ticker: "CCC", Score: 67},
	)}, nil, nil)

	rec := doRequest(t, router, "GET", "/api/scores?min_score=50&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                     `json:"count"`
		Scores []contracts.ScoreRecord `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "AAA", body.Scores[0].Ticker)
}

func TestGetScores_NoScanYet(t *testing.T) {
	router := newTestRouter(&fakeScores{}, nil, nil)
	rec := doRequest(t, router, "GET", "/api/scores", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetScores_BadQuery(t *testing.T) {
	router := newTestRouter(&fakeScores{snap: snapshotWith()}, nil, nil)

	rec := doRequest(t, router, "GET", "/api/scores?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, "GET", "/api/scores?min_score=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScore_TickerLookup(t *testing.T) {
	router := newTestRouter(&fakeScores{snap: snapshotWith(
		contracts.ScoreRecord{Ticker: "AAPL", Score: 71, Grade: "B+"},
	)}, nil, nil)

	// Lowercase path still resolves
	rec := doRequest(t, router, "GET", "/api/scores/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var record contracts.ScoreRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "B+", record.Grade)

	rec = doRequest(t, router, "GET", "/api/scores/MSFT", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWatchlist_Sorted(t *testing.T) {
	wl := contracts.NewWatchlist()
	wl.Entries["LOW"] = contracts.WatchlistEntry{Ticker: "LOW", Score: 55}
	wl.Entries["HIGH"] = contracts.WatchlistEntry{Ticker: "HIGH", Score: 80}

	router := newTestRouter(&fakeScores{wl: wl}, nil, nil)
	rec := doRequest(t, router, "GET", "/api/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []contracts.WatchlistEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "HIGH", body.Entries[0].Ticker)
}

func TestGetStatus_TierFreshness(t *testing.T) {
	probes := []FreshnessProbe{
		{Name: "universe", MaxAge: 7 * 24 * time.Hour, Age: func() (time.Duration, error) {
			return 24 * time.Hour, nil
		}},
		{Name: "scores", MaxAge: 24 * time.Hour, Age: func() (time.Duration, error) {
			return 48 * time.Hour, nil
		}},
		{Name: "master_list", MaxAge: time.Hour, Age: func() (time.Duration, error) {
			return 0, jsonstore.ErrNotFound
		}},
	}

	router := newTestRouter(&fakeScores{}, probes, nil)
	rec := doRequest(t, router, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tiers map[string]struct {
			Available bool `json:"available"`
			Stale     bool `json:"stale"`
		} `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Tiers["universe"].Available)
	assert.False(t, body.Tiers["universe"].Stale)
	assert.True(t, body.Tiers["scores"].Stale)
	assert.False(t, body.Tiers["master_list"].Available)
}

func TestTasks_Lifecycle(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)

	funcs := map[string]TaskFunc{
		"scan": func(ctx context.Context) error {
			started.Done()
			<-release
			return nil
		},
	}
	router := newTestRouter(&fakeScores{}, nil, funcs)

	rec := doRequest(t, router, "POST", "/api/tasks", `{"task":"scan"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var task Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, TaskRunning, task.Status)
	started.Wait()

	// Single-flight: the same task cannot start twice
	rec = doRequest(t, router, "POST", "/api/tasks", `{"task":"scan"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	require.Eventually(t, func() bool {
		rec := doRequest(t, router, "GET", "/api/tasks/"+task.ID, "")
		var got Task
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.Status == TaskSucceeded
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTasks_UnknownNameAndID(t *testing.T) {
	router := newTestRouter(&fakeScores{}, nil, map[string]TaskFunc{})

	rec := doRequest(t, router, "POST", "/api/tasks", `{"task":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, "GET", "/api/tasks/task-99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskRegistry_FailureRecorded(t *testing.T) {
	log := testLogger()
	reg := NewTaskRegistry(context.Background(), map[string]TaskFunc{
		"boom": func(ctx context.Context) error { return errors.New("quota exceeded") },
	}, log)

	task, err := reg.Start("boom")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := reg.Get(task.ID)
		return ok && got.Status == TaskFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := reg.Get(task.ID)
	assert.Contains(t, got.Error, "quota exceeded")
	assert.NotNil(t, got.FinishedAt)

	// The name is free again after failure
	_, err = reg.Start("boom")
	assert.NoError(t, err)
}
