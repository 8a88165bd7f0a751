package collector

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
)

const (
	stockDataFile = "stock_data.json"
	denyListFile  = "unsupported.json"
	exchangeDir   = "exchanges"
)

// Repository persists collected ticker data and the denylist.
// stock_data.json doubles as the collection checkpoint: whatever is
// in it does not need to be fetched again.
type Repository struct {
	store *jsonstore.Store
}

// NewRepository creates a new Repository instance
func NewRepository(store *jsonstore.Store) *Repository {
	return &Repository{store: store}
}

// LoadData reads the checkpoint. A missing file is an empty
// checkpoint, not an error.
func (r *Repository) LoadData() (map[string]contracts.TickerRecord, error) {
	data := make(map[string]contracts.TickerRecord)
	if err := r.store.Load(stockDataFile, &data); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			return make(map[string]contracts.TickerRecord), nil
		}
		return nil, fmt.Errorf("load stock data: %w", err)
	}
	return data, nil
}

// SaveData atomically replaces the checkpoint and refreshes the
// per-exchange split files.
func (r *Repository) SaveData(data map[string]contracts.TickerRecord) error {
	if err := r.store.Save(stockDataFile, data); err != nil {
		return fmt.Errorf("save stock data: %w", err)
	}
	return r.saveByExchange(data)
}

// saveByExchange writes one file per exchange code for consumers
// that only care about a single venue.
func (r *Repository) saveByExchange(data map[string]contracts.TickerRecord) error {
	byExchange := make(map[string]map[string]contracts.TickerRecord)
	for ticker, record := range data {
		ex := record.Exchange
		if ex == "" {
			ex = "UNKNOWN"
		}
		if byExchange[ex] == nil {
			byExchange[ex] = make(map[string]contracts.TickerRecord)
		}
		byExchange[ex][ticker] = record
	}

	for ex, records := range byExchange {
		name := filepath.Join(exchangeDir, ex+".json")
		if err := r.store.Save(name, records); err != nil {
			return fmt.Errorf("save exchange split %s: %w", ex, err)
		}
	}

	return nil
}

// DataAge returns the checkpoint age, jsonstore.ErrNotFound if absent
func (r *Repository) DataAge() (time.Duration, error) {
	return r.store.Age(stockDataFile)
}

// LoadDenyList reads the set of permanently unsupported tickers
func (r *Repository) LoadDenyList() (map[string]struct{}, error) {
	var tickers []string
	if err := r.store.Load(denyListFile, &tickers); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			return make(map[string]struct{}), nil
		}
		return nil, fmt.Errorf("load denylist: %w", err)
	}

	set := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		set[t] = struct{}{}
	}
	return set, nil
}

// SaveDenyList persists the denylist as a sorted symbol array
func (r *Repository) SaveDenyList(set map[string]struct{}) error {
	tickers := make([]string, 0, len(set))
	for t := range set {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	if err := r.store.Save(denyListFile, tickers); err != nil {
		return fmt.Errorf("save denylist: %w", err)
	}
	return nil
}
