package screening

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// Config holds screening list settings
type Config struct {
	Size         int           // how many top names to keep
	MaxAge       time.Duration // list freshness window
	MasterMaxAge time.Duration // upstream master list freshness window
}

// DefaultConfig returns the default screening settings
func DefaultConfig() Config {
	return Config{
		Size:         500,
		MaxAge:       24 * time.Hour,
		MasterMaxAge: 30 * 24 * time.Hour,
	}
}

// MasterSource supplies the ranked master list
type MasterSource interface {
	Load() (*contracts.MasterList, error)
}

// Builder slices the top N of the master list into the daily
// screening list. The master list is already quality ranked, so
// this stage needs no provider calls at all.
type Builder struct {
	master MasterSource
	repo   *Repository
	logger *logger.Logger
	config Config
}

// NewBuilder creates a new Builder
func NewBuilder(master MasterSource, repo *Repository, log *logger.Logger, cfg Config) *Builder {
	return &Builder{
		master: master,
		repo:   repo,
		logger: log,
		config: cfg,
	}
}

// LoadOrRebuild returns the cached list for this size if fresh,
// otherwise rebuilds it from the master list.
func (b *Builder) LoadOrRebuild() (*contracts.ScreeningList, error) {
	cached, err := b.repo.Load(b.config.Size)
	if err == nil && !cached.IsStale(b.config.MaxAge) {
		return cached, nil
	}
	if err != nil && !errors.Is(err, jsonstore.ErrNotFound) {
		return nil, err
	}

	return b.Build()
}

// Build takes the top N master list names and persists the slice.
// A stale master list is worth a warning but not a failure; the
// caller decides when to rebuild the heavier tier.
func (b *Builder) Build() (*contracts.ScreeningList, error) {
	master, err := b.master.Load()
	if err != nil {
		return nil, fmt.Errorf("screening needs a master list: %w", err)
	}

	if master.IsStale(b.config.MasterMaxAge) {
		b.logger.WithField("created_at", master.CreatedAt).Warn("Master list is stale, consider rebuilding")
	}

	tickers := master.Tickers()
	if len(tickers) > b.config.Size {
		tickers = tickers[:b.config.Size]
	}

	list := &contracts.ScreeningList{
		CreatedAt: time.Now(),
		Size:      len(tickers),
		Tickers:   tickers,
	}

	if err := b.repo.Save(list, b.config.Size); err != nil {
		return nil, err
	}

	b.logger.WithFields(map[string]interface{}{
		"requested": b.config.Size,
		"actual":    list.Size,
	}).Info("Screening list built")

	return list, nil
}
