package universe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// RawSource supplies the unvalidated candidate tickers
type RawSource interface {
	FetchAll(ctx context.Context) ([]string, error)
}

// Config holds validation settings
type Config struct {
	Workers    int           // concurrent probes
	BatchSize  int           // probes between politeness pauses
	BatchDelay time.Duration // pause between batches
	MaxAge     time.Duration // snapshot freshness window
}

// DefaultConfig returns the default validation settings
func DefaultConfig() Config {
	return Config{
		Workers:    5,
		BatchSize:  100,
		BatchDelay: 2 * time.Second,
		MaxAge:     24 * time.Hour,
	}
}

// Validator probes candidate tickers against the data provider and
// keeps only the ones that actually return price history.
type Validator struct {
	provider provider.Client
	source   RawSource
	repo     *Repository
	bus      *progress.Bus
	logger   *logger.Logger
	config   Config
}

// NewValidator creates a new Validator
func NewValidator(p provider.Client, source RawSource, repo *Repository, bus *progress.Bus, log *logger.Logger, cfg Config) *Validator {
	return &Validator{
		provider: p,
		source:   source,
		repo:     repo,
		bus:      bus,
		logger:   log,
		config:   cfg,
	}
}

// LoadOrRebuild returns the cached snapshot when it is younger than
// the max age, otherwise fetches raw tickers and revalidates.
func (v *Validator) LoadOrRebuild(ctx context.Context) (*contracts.ValidatedUniverse, error) {
	cached, err := v.repo.Load()
	if err == nil && !cached.IsStale(v.config.MaxAge) {
		v.logger.WithFields(map[string]interface{}{
			"tickers":      cached.Count(),
			"generated_at": cached.GeneratedAt,
		}).Info("Using cached validated universe")
		return cached, nil
	}
	if err != nil && !errors.Is(err, jsonstore.ErrNotFound) {
		return nil, err
	}

	return v.Rebuild(ctx)
}

// Rebuild fetches raw tickers, validates them, and persists the
// new snapshot.
func (v *Validator) Rebuild(ctx context.Context) (*contracts.ValidatedUniverse, error) {
	raw, err := v.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch raw tickers: %w", err)
	}

	universe, err := v.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	if err := v.repo.Save(universe); err != nil {
		return nil, err
	}

	return universe, nil
}

type probeResult struct {
	ticker string
	valid  bool
	err    error
}

// Validate probes every raw ticker with a bounded worker pool.
// A provider rate limit aborts the whole run; per-ticker failures
// just mark the ticker invalid.
func (v *Validator) Validate(ctx context.Context, raw []string) (*contracts.ValidatedUniverse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	results := make(chan probeResult)

	var wg sync.WaitGroup
	for i := 0; i < v.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				results <- v.probe(ctx, ticker)
			}
		}()
	}

	// Feeder paces the probes in batches
	go func() {
		defer close(jobs)
		for i, ticker := range raw {
			if i > 0 && i%v.config.BatchSize == 0 {
				select {
				case <-time.After(v.config.BatchDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case jobs <- ticker:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var valid []string
	var invalid int
	var abortErr error
	done := 0

	for res := range results {
		done++
		if res.err != nil {
			if provider.IsRateLimit(res.err) && abortErr == nil {
				abortErr = res.err
				cancel()
			}
			invalid++
			continue
		}
		if res.valid {
			valid = append(valid, res.ticker)
		} else {
			invalid++
		}

		if done%v.config.BatchSize == 0 || done == len(raw) {
			v.bus.Publish(contracts.ProgressEvent{
				Stage:   contracts.StageUniverse,
				Message: "validating tickers",
				Current: done,
				Total:   len(raw),
			})
		}
	}

	if abortErr != nil {
		return nil, fmt.Errorf("universe validation aborted: %w", abortErr)
	}

	sort.Strings(valid)

	universe := &contracts.ValidatedUniverse{
		GeneratedAt:  time.Now(),
		TotalRaw:     len(raw),
		TotalValid:   len(valid),
		TotalInvalid: len(raw) - len(valid),
		Tickers:      valid,
	}

	v.logger.WithFields(map[string]interface{}{
		"raw":     universe.TotalRaw,
		"valid":   universe.TotalValid,
		"invalid": universe.TotalInvalid,
	}).Info("Universe validation completed")

	return universe, nil
}

// probe checks whether the provider returns any history at all
func (v *Validator) probe(ctx context.Context, ticker string) probeResult {
	bars, err := v.provider.History(ctx, ticker, 5)
	if err != nil {
		return probeResult{ticker: ticker, err: err}
	}
	return probeResult{ticker: ticker, valid: len(bars) > 0}
}
