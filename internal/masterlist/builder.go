package masterlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// DenyLister exposes the permanently unsupported tickers so the
// builder never wastes quota on them.
type DenyLister interface {
	LoadDenyList() (map[string]struct{}, error)
}

// Config holds master list build criteria
type Config struct {
	MinMarketCap float64       // absolute floor in dollars
	MinVolume    float64       // shares per day
	Exchanges    []string      // allowed exchange codes
	TargetSize   int           // list length after ranking
	BatchSize    int           // tickers per bulk quote batch
	MaxAge       time.Duration // list freshness window
}

// DefaultConfig returns the default build criteria
func DefaultConfig() Config {
	return Config{
		MinMarketCap: 1e8,
		MinVolume:    100_000,
		Exchanges:    []string{"NMS", "NYQ", "NGM"},
		TargetSize:   2000,
		BatchSize:    150,
		MaxAge:       30 * 24 * time.Hour,
	}
}

// Builder curates the master list: the best ~2000 names from the
// validated universe, ranked by a liquidity and size quality score.
type Builder struct {
	provider provider.Client
	repo     *Repository
	denied   DenyLister
	bus      *progress.Bus
	logger   *logger.Logger
	config   Config
}

// NewBuilder creates a new Builder
func NewBuilder(p provider.Client, repo *Repository, denied DenyLister, bus *progress.Bus, log *logger.Logger, cfg Config) *Builder {
	return &Builder{
		provider: p,
		repo:     repo,
		denied:   denied,
		bus:      bus,
		logger:   log,
		config:   cfg,
	}
}

// LoadOrRebuild returns the cached list when it is younger than the
// freshness window, otherwise rebuilds from the given universe.
func (b *Builder) LoadOrRebuild(ctx context.Context, tickers []string) (*contracts.MasterList, error) {
	cached, err := b.repo.Load()
	if err == nil && !cached.IsStale(b.config.MaxAge) {
		b.logger.WithFields(map[string]interface{}{
			"stocks":     cached.Count(),
			"created_at": cached.CreatedAt,
		}).Info("Using cached master list")
		return cached, nil
	}
	if err != nil && !errors.Is(err, jsonstore.ErrNotFound) {
		return nil, err
	}

	return b.Build(ctx, tickers)
}

// Build screens every ticker through the quote filters and ranks
// the survivors. Progress is checkpointed per batch; a rate-limit
// abort keeps the checkpoint so the next run resumes.
func (b *Builder) Build(ctx context.Context, tickers []string) (*contracts.MasterList, error) {
	denied, err := b.denied.LoadDenyList()
	if err != nil {
		return nil, err
	}

	cp, err := b.repo.loadCheckpoint()
	if err != nil {
		return nil, err
	}

	processed := make(map[string]struct{}, len(cp.Processed))
	for _, t := range cp.Processed {
		processed[t] = struct{}{}
	}

	pending := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := denied[t]; ok {
			continue
		}
		if _, ok := processed[t]; ok {
			continue
		}
		pending = append(pending, t)
	}
	sort.Strings(pending)

	b.logger.WithFields(map[string]interface{}{
		"universe": len(tickers),
		"resumed":  len(cp.Processed),
		"pending":  len(pending),
	}).Info("Master list build started")

	for start := 0; start < len(pending); start += b.config.BatchSize {
		end := start + b.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		quotes, err := b.provider.BulkQuotes(ctx, batch)
		if err != nil {
			// Partial batch results are discarded; the checkpoint
			// still holds every fully processed batch, so a rerun
			// picks up exactly here.
			if provider.IsRateLimit(err) {
				return nil, fmt.Errorf("master list build aborted by rate limit: %w", err)
			}
			return nil, fmt.Errorf("bulk quote batch: %w", err)
		}

		for _, ticker := range batch {
			cp.Processed = append(cp.Processed, ticker)
			q, ok := quotes[ticker]
			if !ok || !b.passesFilters(q) {
				continue
			}
			cp.Entries = append(cp.Entries, contracts.MasterListEntry{
				Ticker:       q.Ticker,
				Name:         q.Name,
				Exchange:     q.Exchange,
				Price:        q.Price,
				MarketCap:    q.MarketCap,
				Volume:       q.Volume,
				QualityScore: b.qualityScore(q),
			})
		}

		if saveErr := b.repo.saveCheckpoint(cp); saveErr != nil {
			return nil, saveErr
		}

		b.bus.Publish(contracts.ProgressEvent{
			Stage:   contracts.StageMasterList,
			Message: "screening universe",
			Current: len(cp.Processed),
			Total:   len(tickers),
		})
	}

	list := b.rank(cp, len(tickers))

	if err := b.repo.Save(list); err != nil {
		return nil, err
	}
	if err := b.repo.clearCheckpoint(); err != nil {
		return nil, err
	}

	b.logger.WithFields(map[string]interface{}{
		"candidates": list.Stats.Candidates,
		"ranked":     list.Count(),
	}).Info("Master list build completed")

	return list, nil
}

// rank sorts the surviving entries and truncates to the target size
func (b *Builder) rank(cp *checkpoint, universeSize int) *contracts.MasterList {
	entries := make([]contracts.MasterListEntry, len(cp.Entries))
	copy(entries, cp.Entries)

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].QualityScore != entries[j].QualityScore {
			return entries[i].QualityScore > entries[j].QualityScore
		}
		return entries[i].MarketCap > entries[j].MarketCap
	})

	if len(entries) > b.config.TargetSize {
		entries = entries[:b.config.TargetSize]
	}

	return &contracts.MasterList{
		CreatedAt: time.Now(),
		Criteria: contracts.MasterListCriteria{
			MinMarketCap: b.config.MinMarketCap,
			MinVolume:    b.config.MinVolume,
			Exchanges:    b.config.Exchanges,
			TargetSize:   b.config.TargetSize,
		},
		Stats: contracts.MasterListStats{
			Candidates: universeSize,
			Filtered:   len(cp.Processed) - len(cp.Entries),
			Ranked:     len(entries),
		},
		Stocks: entries,
	}
}

// passesFilters applies the hard criteria to one quote
func (b *Builder) passesFilters(q contracts.Quote) bool {
	if q.Price <= 0 || q.MarketCap < b.config.MinMarketCap {
		return false
	}
	if q.Volume < b.config.MinVolume {
		return false
	}

	if len(b.config.Exchanges) > 0 {
		allowed := false
		for _, ex := range b.config.Exchanges {
			if q.Exchange == ex {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}

// qualityScore favors large, liquid names on the preferred venues.
// Capped log scales keep mega caps from drowning out everything.
func (b *Builder) qualityScore(q contracts.Quote) float64 {
	score := 0.0

	if q.MarketCap > 0 {
		score += math.Min(5, math.Max(0, math.Log10(q.MarketCap/1e8)))
	}
	if q.Volume > 0 {
		score += math.Min(3, math.Max(0, math.Log10(q.Volume/1e5)))
	}

	switch q.Exchange {
	case "NYQ", "NMS":
		score += 1.0
	case "NGM":
		score += 0.5
	}

	return score
}
