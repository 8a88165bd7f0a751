package scan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
)

const (
	scoresFile    = "daily_scores.json"
	watchlistFile = "watchlist.json"
	alertsFile    = "alerts_log.csv"
)

var alertsHeader = []string{"time", "ticker", "score", "grade", "recommendation", "price", "classification"}

// Repository persists scan outputs: the latest score snapshot, the
// watchlist, the append-only alert log, and CSV exports.
type Repository struct {
	store     *jsonstore.Store
	outputDir string
}

// NewRepository creates a new Repository instance
func NewRepository(store *jsonstore.Store, outputDir string) *Repository {
	return &Repository{store: store, outputDir: outputDir}
}

// SaveSnapshot atomically replaces the daily score snapshot. Only
// the latest snapshot is ever kept.
func (r *Repository) SaveSnapshot(snap *contracts.ScoreSnapshot) error {
	if err := r.store.Save(scoresFile, snap); err != nil {
		return fmt.Errorf("save score snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the latest snapshot, jsonstore.ErrNotFound if
// no scan has run yet.
func (r *Repository) LoadSnapshot() (*contracts.ScoreSnapshot, error) {
	var snap contracts.ScoreSnapshot
	if err := r.store.Load(scoresFile, &snap); err != nil {
		return nil, fmt.Errorf("load score snapshot: %w", err)
	}
	return &snap, nil
}

// SnapshotAge returns the snapshot age, jsonstore.ErrNotFound if absent
func (r *Repository) SnapshotAge() (time.Duration, error) {
	return r.store.Age(scoresFile)
}

// LoadWatchlist reads the watchlist. A missing file is an empty
// watchlist, not an error.
func (r *Repository) LoadWatchlist() (*contracts.Watchlist, error) {
	var wl contracts.Watchlist
	if err := r.store.Load(watchlistFile, &wl); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			return contracts.NewWatchlist(), nil
		}
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if wl.Entries == nil {
		wl.Entries = make(map[string]contracts.WatchlistEntry)
	}
	return &wl, nil
}

// SaveWatchlist atomically replaces the watchlist
func (r *Repository) SaveWatchlist(wl *contracts.Watchlist) error {
	if err := r.store.Save(watchlistFile, wl); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}

// AppendAlerts adds rows to the append-only alert log, writing the
// header when the file is new.
func (r *Repository) AppendAlerts(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	path := r.store.Path(alertsFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create alert log dir: %w", err)
	}

	info, statErr := os.Stat(path)
	writeHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(alertsHeader); err != nil {
			return fmt.Errorf("write alert header: %w", err)
		}
	}

	for _, a := range alerts {
		row := []string{
			a.Time.Format(time.RFC3339),
			a.Ticker,
			strconv.FormatFloat(a.Score, 'f', 1, 64),
			a.Grade,
			a.Recommendation,
			strconv.FormatFloat(a.Price, 'f', 2, 64),
			a.Classification,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write alert row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush alert log: %w", err)
	}
	return nil
}

// ExportTopCSV writes the top n records to a dated CSV in the output
// directory and returns the file path.
func (r *Repository) ExportTopCSV(records []contracts.ScoreRecord, n int, asOf time.Time) (string, error) {
	if n > 0 && len(records) > n {
		records = records[:n]
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("top_scores_%s.csv", asOf.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"rank", "ticker", "name", "price", "score", "grade", "recommendation", "confidence", "classification"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write export header: %w", err)
	}

	for i, rec := range records {
		row := []string{
			strconv.Itoa(i + 1),
			rec.Ticker,
			rec.Name,
			strconv.FormatFloat(rec.Price, 'f', 2, 64),
			strconv.FormatFloat(rec.Score, 'f', 1, 64),
			rec.Grade,
			rec.Recommendation,
			rec.Confidence,
			rec.DipSignal.Classification,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush export: %w", err)
	}
	return path, nil
}
