package scan

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/scoring"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

type fakeData map[string]contracts.TickerRecord

func (f fakeData) LoadData() (map[string]contracts.TickerRecord, error) { return f, nil }

type fakeList []string

func (f fakeList) LoadOrRebuild() (*contracts.ScreeningList, error) {
	return &contracts.ScreeningList{CreatedAt: time.Now(), Size: len(f), Tickers: f}, nil
}

func fp(v float64) *float64 { return &v }

// dipBars builds a year-long rally followed by a 25% pullback on
// elevated closing volume.
func dipBars() []contracts.Bar {
	bars := make([]contracts.Bar, 0, 260)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 50.0
	for i := 0; i < 200; i++ {
		price += 0.25
		bars = append(bars, contracts.Bar{Date: start.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1_000_000})
	}
	for i := 0; i < 60; i++ {
		price -= 0.41
		bars = append(bars, contracts.Bar{Date: start.AddDate(0, 0, 200+i), Open: price, High: price, Low: price, Close: price, Volume: 1_000_000})
	}
	bars[len(bars)-1].Volume = 2_200_000
	return bars
}

func record(ticker string, f *contracts.Fundamentals) contracts.TickerRecord {
	bars := dipBars()
	return contracts.TickerRecord{
		Ticker:       ticker,
		Name:         ticker + " Inc",
		Price:        bars[len(bars)-1].Close,
		MarketCap:    5e10,
		Volume:       2_200_000,
		History:      bars,
		Fundamentals: f,
		CollectedAt:  time.Now(),
	}
}

func goodFundamentals() *contracts.Fundamentals {
	return &contracts.Fundamentals{
		FreeCashFlow:      fp(5e9),
		OperatingCashFlow: fp(8e9),
		OperatingMargin:   fp(0.22),
		ProfitMargin:      fp(0.18),
		ReturnOnEquity:    fp(0.25),
		DebtToEquity:      fp(0.25),
		CurrentRatio:      fp(2.5),
		TrailingPE:        fp(9),
		PriceToBook:       fp(1.5),
		RevenueGrowth:     fp(0.2),
	}
}

func badFundamentals() *contracts.Fundamentals {
	return &contracts.Fundamentals{
		FreeCashFlow:      fp(-5e9),
		OperatingCashFlow: fp(-1e9),
		ProfitMargin:      fp(-0.3),
		DebtToEquity:      fp(5.0),
		CurrentRatio:      fp(0.4),
		TrailingPE:        fp(250),
	}
}

func newTestScanner(t *testing.T, data fakeData, list fakeList, cfg Config) (*Scanner, *Repository) {
	t.Helper()
	logCfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	log := logger.New(logCfg)
	repo := NewRepository(jsonstore.New(t.TempDir()), t.TempDir())
	engine := scoring.NewEngine(scoring.DefaultParams(), log)
	return NewScanner(data, list, engine, repo, progress.NewBus(), log, cfg), repo
}

func TestRun_ScoresAndPersists(t *testing.T) {
	data := fakeData{
		"GOOD": record("GOOD", goodFundamentals()),
		"BAD":  record("BAD", badFundamentals()),
	}
	s, repo := newTestScanner(t, data, fakeList{"GOOD", "BAD", "MISSING"}, DefaultConfig())

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Skipped)

	snap, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Scores, 3)
	assert.Positive(t, snap.Scores["GOOD"].Score)
	assert.Zero(t, snap.Scores["BAD"].Score)
	assert.Equal(t, contracts.RecAvoid, snap.Scores["BAD"].Recommendation)

	// The missing ticker is reported, not dropped
	missing := snap.Scores["MISSING"]
	assert.Zero(t, missing.Score)
	assert.Equal(t, ClassificationNoData, missing.DipSignal.Classification)
	assert.Contains(t, missing.KeyRisks, "no collected data")
}

func TestRun_UnscorableRecordsKeptAsZeroEntries(t *testing.T) {
	thin := record("THIN", goodFundamentals())
	thin.History = thin.History[:5] // below the indicator minimum

	data := fakeData{"THIN": thin}
	s, repo := newTestScanner(t, data, fakeList{"THIN"}, DefaultConfig())

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Scanned)

	snap, err := repo.LoadSnapshot()
	require.NoError(t, err)
	require.Contains(t, snap.Scores, "THIN")

	entry := snap.Scores["THIN"]
	assert.Zero(t, entry.Score)
	assert.Equal(t, "F", entry.Grade)
	assert.Equal(t, contracts.RecAvoid, entry.Recommendation)
	assert.Equal(t, ClassificationNoData, entry.DipSignal.Classification)
	assert.Contains(t, entry.KeyRisks, "insufficient collected data")
	assert.False(t, entry.HasEnhancedData)
}

func TestRun_WatchlistLifecycle(t *testing.T) {
	data := fakeData{
		"GOOD": record("GOOD", goodFundamentals()),
		"BAD":  record("BAD", badFundamentals()),
	}
	s, repo := newTestScanner(t, data, fakeList{"GOOD", "BAD"}, DefaultConfig())

	firstRun := time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return firstRun }

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Watchlisted)

	wl, err := repo.LoadWatchlist()
	require.NoError(t, err)
	require.Contains(t, wl.Entries, "GOOD")
	assert.NotContains(t, wl.Entries, "BAD")
	assert.Equal(t, firstRun, wl.Entries["GOOD"].FirstSeen)

	// Second scan keeps the first-seen date
	secondRun := firstRun.Add(24 * time.Hour)
	s.now = func() time.Time { return secondRun }

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	wl, err = repo.LoadWatchlist()
	require.NoError(t, err)
	assert.Equal(t, firstRun, wl.Entries["GOOD"].FirstSeen)
	assert.Equal(t, secondRun, wl.Entries["GOOD"].LastUpdated)
}

func TestRun_AlertsFireOnce(t *testing.T) {
	data := fakeData{"GOOD": record("GOOD", goodFundamentals())}
	cfg := DefaultConfig()
	cfg.AlertThreshold = 60

	s, repo := newTestScanner(t, data, fakeList{"GOOD"}, cfg)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewAlerts)

	// Already on the watchlist, so no second alert
	result, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.NewAlerts)

	f, err := os.Open(repo.store.Path("alerts_log.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header plus one alert
	assert.Equal(t, "ticker", rows[0][1])
	assert.Equal(t, "GOOD", rows[1][1])
}

func TestRun_ExportsTopCSV(t *testing.T) {
	data := fakeData{
		"GOOD": record("GOOD", goodFundamentals()),
		"BAD":  record("BAD", badFundamentals()),
	}
	cfg := DefaultConfig()
	cfg.TopN = 1

	s, _ := newTestScanner(t, data, fakeList{"GOOD", "BAD"}, cfg)
	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.ExportPath)

	f, err := os.Open(result.ExportPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header plus top 1
	assert.Equal(t, "GOOD", rows[1][1])
}

func TestRanked_Ordering(t *testing.T) {
	snap := &contracts.ScoreSnapshot{Scores: map[string]contracts.ScoreRecord{
		"LOW":  {Ticker: "LOW", Score: 20},
		"HIGH": {Ticker: "HIGH", Score: 80},
		"TIE2": {Ticker: "TIE2", Score: 50},
		"TIE1": {Ticker: "TIE1", Score: 50},
	}}

	ranked := Ranked(snap)
	tickers := make([]string, len(ranked))
	for i, r := range ranked {
		tickers[i] = r.Ticker
	}
	assert.Equal(t, []string{"HIGH", "TIE1", "TIE2", "LOW"}, tickers)
}
