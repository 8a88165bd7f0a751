package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/wonny/dipscan/internal/collector"
	"github.com/wonny/dipscan/internal/masterlist"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/internal/provider/finnhub"
	"github.com/wonny/dipscan/internal/scan"
	"github.com/wonny/dipscan/internal/scoring"
	"github.com/wonny/dipscan/internal/screening"
	"github.com/wonny/dipscan/internal/sources"
	"github.com/wonny/dipscan/internal/strategyconfig"
	"github.com/wonny/dipscan/internal/universe"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/httputil"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// app wires every pipeline stage once so each command picks what it
// needs instead of repeating the setup.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	store    *jsonstore.Store
	bus      *progress.Bus

	universeRepo  *universe.Repository
	masterRepo    *masterlist.Repository
	screenRepo    *screening.Repository
	collectorRepo *collector.Repository
	scanRepo      *scan.Repository
	paramsRepo    *scoring.ParamsRepository

	validator     *universe.Validator
	masterBuilder *masterlist.Builder
	screenBuilder *screening.Builder
	collector     *collector.Collector
	engine        *scoring.Engine
	scanner       *scan.Scanner
}

// newApp builds the full dependency graph from environment config and
// the strategy file.
func newApp() (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy (flag > env > built-in default)
	strategy, err := loadStrategy(cfg, log)
	if err != nil {
		return nil, err
	}

	// 4. Storage and progress bus
	store := jsonstore.New(cfg.CacheDir)
	bus := progress.NewBus()

	// 5. Market data provider behind the quota throttle
	httpClient := httputil.New(cfg, log)
	prov := provider.NewThrottled(finnhub.NewClient(cfg, httpClient, log), cfg.Provider)

	// 6. Repositories
	universeRepo := universe.NewRepository(store)
	masterRepo := masterlist.NewRepository(store)
	screenRepo := screening.NewRepository(store)
	collectorRepo := collector.NewRepository(store)
	scanRepo := scan.NewRepository(store, cfg.OutputDir)
	paramsRepo := scoring.NewParamsRepository(store)

	// 7. Pipeline stages, strategy values layered over stage defaults
	fetcher := sources.NewFetcher(httpClient, log)
	validator := universe.NewValidator(prov, fetcher, universeRepo, bus, log, universeConfig(strategy))
	masterBuilder := masterlist.NewBuilder(prov, masterRepo, collectorRepo, bus, log, masterConfig(strategy))
	screenBuilder := screening.NewBuilder(masterRepo, screenRepo, log, screeningConfig(strategy))
	dataCollector := collector.New(prov, collectorRepo, bus, log, collectorConfig(strategy))

	// 8. Scoring engine with persisted parameters
	params, err := paramsRepo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring parameters: %w", err)
	}
	engine := scoring.NewEngine(params, log)
	scanner := scan.NewScanner(collectorRepo, screenBuilder, engine, scanRepo, bus, log, scanConfig(strategy))

	return &app{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
		store:    store,
		bus:      bus,

		universeRepo:  universeRepo,
		masterRepo:    masterRepo,
		screenRepo:    screenRepo,
		collectorRepo: collectorRepo,
		scanRepo:      scanRepo,
		paramsRepo:    paramsRepo,

		validator:     validator,
		masterBuilder: masterBuilder,
		screenBuilder: screenBuilder,
		collector:     dataCollector,
		engine:        engine,
		scanner:       scanner,
	}, nil
}

// loadStrategy resolves the strategy file. A missing file falls back
// to the built-in default so a fresh checkout runs without setup.
func loadStrategy(cfg *config.Config, log *logger.Logger) (*strategyconfig.Config, error) {
	path := strategyFile
	if path == "" {
		path = cfg.StrategyFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Info("Strategy file not found, using built-in defaults")
		return strategyconfig.Default(), nil
	}

	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy %s: %w", path, err)
	}

	for _, w := range strategyconfig.Warn(strategy) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy warning")
	}

	log.WithField("strategy_id", strategy.Meta.StrategyID).Info("Strategy loaded")
	return strategy, nil
}

func universeConfig(s *strategyconfig.Config) universe.Config {
	c := universe.DefaultConfig()
	c.Workers = s.Universe.Workers
	c.BatchSize = s.Universe.BatchSize
	c.MaxAge = time.Duration(s.Universe.MaxAgeDays) * 24 * time.Hour
	return c
}

func masterConfig(s *strategyconfig.Config) masterlist.Config {
	c := masterlist.DefaultConfig()
	c.MinMarketCap = s.MasterList.MinMarketCap
	c.MinVolume = s.MasterList.MinVolume
	c.Exchanges = s.MasterList.Exchanges
	c.TargetSize = s.MasterList.TargetSize
	c.MaxAge = time.Duration(s.MasterList.MaxAgeDays) * 24 * time.Hour
	return c
}

func screeningConfig(s *strategyconfig.Config) screening.Config {
	c := screening.DefaultConfig()
	c.Size = s.Screening.Size
	c.MaxAge = time.Duration(s.Screening.MaxAgeHours) * time.Hour
	c.MasterMaxAge = time.Duration(s.MasterList.MaxAgeDays) * 24 * time.Hour
	return c
}

func collectorConfig(s *strategyconfig.Config) collector.Config {
	c := collector.DefaultConfig()
	c.BatchSize = s.Collection.BatchSize
	c.HistoryDays = s.Collection.HistoryDays
	c.MaxAge = time.Duration(s.Collection.MaxAgeDays) * 24 * time.Hour
	return c
}

func scanConfig(s *strategyconfig.Config) scan.Config {
	c := scan.DefaultConfig()
	c.WatchThreshold = s.Scan.WatchThreshold
	c.AlertThreshold = s.Scan.AlertThreshold
	c.TopN = s.Scan.TopN
	return c
}
