package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/pkg/logger"
)

// Config holds collection settings
type Config struct {
	BatchSize   int           // tickers per batch
	HistoryDays int           // daily bars to fetch per ticker
	MaxAge      time.Duration // checkpointed record freshness window
	MaxRetries  int           // attempts for transient per-ticker errors
	RetryDelay  time.Duration // initial backoff, doubles per attempt
}

// DefaultConfig returns the default collection settings
func DefaultConfig() Config {
	return Config{
		BatchSize:   150,
		HistoryDays: 30,
		MaxAge:      7 * 24 * time.Hour,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

// errNoHistory marks a symbol whose history came back empty
var errNoHistory = errors.New("provider returned no candles")

// Result summarizes a collection run
type Result struct {
	Requested  int `json:"requested"`
	Collected  int `json:"collected"`
	Resumed    int `json:"resumed"`    // fresh in the checkpoint
	Denylisted int `json:"denylisted"` // dead quotes, newly added to the denylist
	Failed     int `json:"failed"`     // stage 2 failures, also marked bad
}

// Collector fetches full datasets for a list of tickers in two
// stages: a cheap bulk quote pass that weeds out dead symbols, then
// a per-ticker history and fundamentals pass. Progress is
// checkpointed after every batch so an aborted run resumes where it
// stopped.
type Collector struct {
	provider provider.Client
	repo     *Repository
	bus      *progress.Bus
	logger   *logger.Logger
	config   Config
}

// New creates a new Collector
func New(p provider.Client, repo *Repository, bus *progress.Bus, log *logger.Logger, cfg Config) *Collector {
	return &Collector{
		provider: p,
		repo:     repo,
		bus:      bus,
		logger:   log,
		config:   cfg,
	}
}

// Collect fetches data for every ticker not already checkpointed or
// denylisted. A provider rate limit stops the run after persisting
// everything gathered so far; rerunning later continues cleanly.
func (c *Collector) Collect(ctx context.Context, tickers []string) (*Result, error) {
	data, err := c.repo.LoadData()
	if err != nil {
		return nil, err
	}
	denied, err := c.repo.LoadDenyList()
	if err != nil {
		return nil, err
	}

	result := &Result{Requested: len(tickers)}

	pending := make([]string, 0, len(tickers))
	for _, t := range tickers {
		// A checkpointed record only counts while it is fresh; a
		// stale one is re-collected and overwritten in place.
		if rec, ok := data[t]; ok && time.Since(rec.CollectedAt) <= c.config.MaxAge {
			result.Resumed++
			continue
		}
		if _, ok := denied[t]; ok {
			continue
		}
		pending = append(pending, t)
	}
	sort.Strings(pending)

	c.logger.WithFields(map[string]interface{}{
		"requested": len(tickers),
		"resumed":   result.Resumed,
		"pending":   len(pending),
	}).Info("Collection started")

	for start := 0; start < len(pending); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		runErr := c.collectBatch(ctx, batch, data, denied, result)

		// Checkpoint the batch outcome whether it succeeded or not
		if err := c.repo.SaveData(data); err != nil {
			return result, err
		}
		if err := c.repo.SaveDenyList(denied); err != nil {
			return result, err
		}

		c.bus.Publish(contracts.ProgressEvent{
			Stage:   contracts.StageCollect,
			Message: "collecting ticker data",
			Current: start + len(batch),
			Total:   len(pending),
		})

		if runErr != nil {
			return result, runErr
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"collected":  result.Collected,
		"denylisted": result.Denylisted,
		"failed":     result.Failed,
	}).Info("Collection completed")

	return result, nil
}

// collectBatch runs both stages for one batch, mutating data and
// denied in place.
func (c *Collector) collectBatch(ctx context.Context, batch []string, data map[string]contracts.TickerRecord, denied map[string]struct{}, result *Result) error {
	// Stage 1: bulk quotes filter out symbols with no price or cap
	quotes, err := c.provider.BulkQuotes(ctx, batch)
	if err != nil {
		if provider.IsRateLimit(err) {
			return fmt.Errorf("collection aborted by rate limit: %w", err)
		}
		return fmt.Errorf("bulk quote stage: %w", err)
	}

	alive := make([]string, 0, len(batch))
	for _, ticker := range batch {
		q, ok := quotes[ticker]
		if !ok || q.Price <= 0 || q.MarketCap <= 0 {
			denied[ticker] = struct{}{}
			result.Denylisted++
			continue
		}
		alive = append(alive, ticker)
	}

	// Stage 2: per-ticker history and fundamentals
	for _, ticker := range alive {
		record, err := c.collectOne(ctx, ticker, quotes[ticker])
		if err != nil {
			if provider.IsRateLimit(err) {
				return fmt.Errorf("collection aborted by rate limit: %w", err)
			}
			// Exhausted retries or an empty history both mark the
			// symbol bad; leaving it merely failed would score stale
			// or nonexistent data forever.
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Ticker collection failed, marking bad")
			denied[ticker] = struct{}{}
			result.Failed++
			continue
		}

		data[ticker] = record
		result.Collected++
	}

	return nil
}

// collectOne fetches history and fundamentals for one ticker with
// bounded exponential backoff. Rate limits are never retried.
func (c *Collector) collectOne(ctx context.Context, ticker string, quote contracts.Quote) (contracts.TickerRecord, error) {
	var history []contracts.Bar
	err := c.withRetry(ctx, func() error {
		var err error
		history, err = c.provider.History(ctx, ticker, c.config.HistoryDays)
		return err
	})
	if err != nil {
		return contracts.TickerRecord{}, fmt.Errorf("history for %s: %w", ticker, err)
	}
	if len(history) == 0 {
		// The provider answered but has no candles for the symbol; a
		// record with zero bars would never become scorable.
		return contracts.TickerRecord{}, fmt.Errorf("history for %s: %w", ticker, errNoHistory)
	}

	var fundamentals *contracts.Fundamentals
	err = c.withRetry(ctx, func() error {
		var err error
		fundamentals, err = c.provider.Fundamentals(ctx, ticker)
		return err
	})
	if err != nil {
		if provider.IsRateLimit(err) {
			return contracts.TickerRecord{}, fmt.Errorf("fundamentals for %s: %w", ticker, err)
		}
		// History alone is still a usable record; scoring falls back
		// to the technical-only path.
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"error":  err.Error(),
		}).Debug("Fundamentals unavailable")
		fundamentals = nil
	}

	return contracts.TickerRecord{
		Ticker:       ticker,
		Name:         quote.Name,
		Exchange:     quote.Exchange,
		Price:        quote.Price,
		MarketCap:    quote.MarketCap,
		Volume:       quote.Volume,
		History:      history,
		Fundamentals: fundamentals,
		CollectedAt:  time.Now(),
	}, nil
}

// withRetry runs fn up to MaxRetries times with exponential backoff.
// Rate-limit errors abort immediately.
func (c *Collector) withRetry(ctx context.Context, fn func() error) error {
	delay := c.config.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if provider.IsRateLimit(lastErr) {
			return lastErr
		}
		if attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	return lastErr
}
