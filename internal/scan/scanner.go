package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/scoring"
	"github.com/wonny/dipscan/pkg/logger"
)

// Config holds scan settings
type Config struct {
	WatchThreshold float64 // minimum score to enter the watchlist
	AlertThreshold float64 // minimum score for a fresh alert
	TopN           int     // rows in the CSV export
}

// DefaultConfig returns the default scan settings
func DefaultConfig() Config {
	return Config{
		WatchThreshold: 50,
		AlertThreshold: 70,
		TopN:           20,
	}
}

// DataSource supplies the collected ticker records
type DataSource interface {
	LoadData() (map[string]contracts.TickerRecord, error)
}

// ListSource supplies the screening list to scan
type ListSource interface {
	LoadOrRebuild() (*contracts.ScreeningList, error)
}

// Alert is one row of the append-only alert log
type Alert struct {
	Time           time.Time
	Ticker         string
	Score          float64
	Grade          string
	Recommendation string
	Price          float64
	Classification string
}

// Result summarizes one scan run
type Result struct {
	Scanned     int
	Skipped     int
	Watchlisted int
	NewAlerts   int
	ExportPath  string
}

// Scanner scores every collected record on the screening list and
// maintains the downstream artifacts: snapshot, watchlist, alert
// log, and CSV export. Scanning is pure computation; it never calls
// the provider.
type Scanner struct {
	data      DataSource
	screening ListSource
	engine    *scoring.Engine
	repo      *Repository
	bus       *progress.Bus
	logger    *logger.Logger
	config    Config
	now       func() time.Time
}

// NewScanner creates a new Scanner
func NewScanner(data DataSource, screening ListSource, engine *scoring.Engine, repo *Repository, bus *progress.Bus, log *logger.Logger, cfg Config) *Scanner {
	return &Scanner{
		data:      data,
		screening: screening,
		engine:    engine,
		repo:      repo,
		bus:       bus,
		logger:    log,
		config:    cfg,
		now:       time.Now,
	}
}

// Run executes a full scan
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	list, err := s.screening.LoadOrRebuild()
	if err != nil {
		return nil, fmt.Errorf("scan needs a screening list: %w", err)
	}

	data, err := s.data.LoadData()
	if err != nil {
		return nil, fmt.Errorf("scan needs collected data: %w", err)
	}

	now := s.now()
	snap := &contracts.ScoreSnapshot{
		LastUpdate: now,
		Scores:     make(map[string]contracts.ScoreRecord, len(list.Tickers)),
	}

	result := &Result{}
	for i, ticker := range list.Tickers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, ok := data[ticker]
		if !ok || !record.Scorable() {
			// Names with missing or unusable data stay visible in the
			// snapshot as explicit zero entries instead of vanishing.
			snap.Scores[ticker] = absentDataRecord(ticker, record, ok, now)
			s.logger.WithField("ticker", ticker).Debug("No scorable data, recording zero entry")
			result.Skipped++
			continue
		}

		snap.Scores[ticker] = s.engine.Score(&record)
		result.Scanned++

		if (i+1)%100 == 0 || i == len(list.Tickers)-1 {
			s.bus.Publish(contracts.ProgressEvent{
				Stage:   contracts.StageScan,
				Current: i + 1,
				Total:   len(list.Tickers),
				Message: fmt.Sprintf("scored %d of %d", i+1, len(list.Tickers)),
			})
		}
	}

	if err := s.repo.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	alerts, watchlisted, err := s.updateWatchlist(snap, now)
	if err != nil {
		return nil, err
	}
	result.Watchlisted = watchlisted
	result.NewAlerts = len(alerts)

	if err := s.repo.AppendAlerts(alerts); err != nil {
		return nil, err
	}

	path, err := s.repo.ExportTopCSV(Ranked(snap), s.config.TopN, now)
	if err != nil {
		return nil, err
	}
	result.ExportPath = path

	s.logger.WithFields(map[string]interface{}{
		"scanned":     result.Scanned,
		"skipped":     result.Skipped,
		"watchlisted": result.Watchlisted,
		"new_alerts":  result.NewAlerts,
	}).Info("Scan complete")

	return result, nil
}

// updateWatchlist merges the snapshot into the watchlist. Names
// above the threshold are added or refreshed keeping their first
// seen date; rescanned names that fell below it are dropped. Names
// absent from this scan keep their last state.
func (s *Scanner) updateWatchlist(snap *contracts.ScoreSnapshot, now time.Time) ([]Alert, int, error) {
	wl, err := s.repo.LoadWatchlist()
	if err != nil {
		return nil, 0, err
	}

	var alerts []Alert
	for ticker, rec := range snap.Scores {
		if rec.Score < s.config.WatchThreshold {
			delete(wl.Entries, ticker)
			continue
		}

		existing, known := wl.Entries[ticker]
		entry := contracts.WatchlistEntry{
			Ticker:         ticker,
			Score:          rec.Score,
			Grade:          rec.Grade,
			Recommendation: rec.Recommendation,
			Price:          rec.Price,
			FirstSeen:      now,
			LastUpdated:    now,
		}
		if known {
			entry.FirstSeen = existing.FirstSeen
		}
		wl.Entries[ticker] = entry

		// Alerts fire once, on first crossing of the alert bar
		if !known && rec.Score >= s.config.AlertThreshold {
			alerts = append(alerts, Alert{
				Time:           now,
				Ticker:         ticker,
				Score:          rec.Score,
				Grade:          rec.Grade,
				Recommendation: rec.Recommendation,
				Price:          rec.Price,
				Classification: rec.DipSignal.Classification,
			})
		}
	}

	wl.UpdatedAt = now
	if err := s.repo.SaveWatchlist(wl); err != nil {
		return nil, 0, err
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Score > alerts[j].Score })
	return alerts, len(wl.Entries), nil
}

// ClassificationNoData marks snapshot entries that could not be
// scored because their record is missing or unusable.
const ClassificationNoData = "no_data"

// absentDataRecord builds the explicit zero entry for a ticker whose
// record is missing from the cache or below the scorable bar.
func absentDataRecord(ticker string, record contracts.TickerRecord, collected bool, now time.Time) contracts.ScoreRecord {
	reason := "no collected data"
	if collected {
		reason = "insufficient collected data"
	}

	res := contracts.ScoreRecord{
		Ticker:         ticker,
		Name:           record.Name,
		Price:          record.Price,
		Score:          0,
		Grade:          "F",
		Recommendation: contracts.RecAvoid,
		Confidence:     "low",
		ScoredAt:       now,
		KeyRisks:       []string{reason},
	}
	res.DipSignal.Classification = ClassificationNoData
	return res
}

// Ranked returns the snapshot records sorted by score descending,
// ties broken by ticker for stable output.
func Ranked(snap *contracts.ScoreSnapshot) []contracts.ScoreRecord {
	records := make([]contracts.ScoreRecord, 0, len(snap.Scores))
	for _, rec := range snap.Scores {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].Ticker < records[j].Ticker
	})
	return records
}
