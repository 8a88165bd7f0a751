package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/scan"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// ScoreSource supplies the latest scan artifacts
type ScoreSource interface {
	LoadSnapshot() (*contracts.ScoreSnapshot, error)
	LoadWatchlist() (*contracts.Watchlist, error)
}

// FreshnessProbe reports the age of one cache tier for the status
// endpoint. Age returns jsonstore.ErrNotFound when the tier was
// never built.
type FreshnessProbe struct {
	Name   string
	MaxAge time.Duration
	Age    func() (time.Duration, error)
}

// Handlers holds the HTTP handler dependencies
type Handlers struct {
	scores ScoreSource
	probes []FreshnessProbe
	tasks  *TaskRegistry
	logger *logger.Logger
}

// NewHandlers creates the handler set
func NewHandlers(scores ScoreSource, probes []FreshnessProbe, tasks *TaskRegistry, log *logger.Logger) *Handlers {
	return &Handlers{
		scores: scores,
		probes: probes,
		tasks:  tasks,
		logger: log,
	}
}

// GetScores returns the ranked snapshot. Supports ?limit=N and
// ?min_score=X filters.
func (h *Handlers) GetScores(w http.ResponseWriter, r *http.Request) {
	snap, err := h.scores.LoadSnapshot()
	if err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no scan has run yet")
			return
		}
		h.serverError(w, r, err)
		return
	}

	ranked := scan.Ranked(snap)

	if v := r.URL.Query().Get("min_score"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		filtered := ranked[:0]
		for _, rec := range ranked {
			if rec.Score >= min {
				filtered = append(filtered, rec)
			}
		}
		ranked = filtered
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_update": snap.LastUpdate,
		"count":       len(ranked),
		"scores":      ranked,
	})
}

// GetScore returns the full layered result for one ticker
func (h *Handlers) GetScore(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	snap, err := h.scores.LoadSnapshot()
	if err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no scan has run yet")
			return
		}
		h.serverError(w, r, err)
		return
	}

	rec, ok := snap.Scores[ticker]
	if !ok {
		writeError(w, http.StatusNotFound, "ticker not in latest scan")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetWatchlist returns the current watchlist sorted by score
func (h *Handlers) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.scores.LoadWatchlist()
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	entries := make([]contracts.WatchlistEntry, 0, len(wl.Entries))
	for _, e := range wl.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Ticker < entries[j].Ticker
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated_at": wl.UpdatedAt,
		"count":      len(entries),
		"entries":    entries,
	})
}

// tierStatus is one row of the status report
type tierStatus struct {
	Available  bool    `json:"available"`
	AgeSeconds float64 `json:"age_seconds,omitempty"`
	Stale      bool    `json:"stale"`
}

// GetStatus reports the freshness of every cache tier
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	tiers := make(map[string]tierStatus, len(h.probes))
	for _, probe := range h.probes {
		age, err := probe.Age()
		switch {
		case errors.Is(err, jsonstore.ErrNotFound):
			tiers[probe.Name] = tierStatus{Available: false, Stale: true}
		case err != nil:
			h.logger.WithError(err).WithField("tier", probe.Name).Error("Freshness probe failed")
			tiers[probe.Name] = tierStatus{Available: false, Stale: true}
		default:
			tiers[probe.Name] = tierStatus{
				Available:  true,
				AgeSeconds: age.Seconds(),
				Stale:      age > probe.MaxAge,
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"time":  time.Now(),
		"tiers": tiers,
	})
}

// StartTask launches a named pipeline task in the background
func (h *Handlers) StartTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task string `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be JSON with a task field")
		return
	}

	task, err := h.tasks.Start(req.Task)
	if err != nil {
		if errors.Is(err, ErrUnknownTask) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrTaskRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}

// ListTasks returns all known task runs, newest first
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": h.tasks.List(),
	})
}

// GetTask returns one task run by id
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.tasks.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown task id")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
