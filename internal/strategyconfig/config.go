package strategyconfig

import "time"

// Config is the full declarative screening strategy: every tier's
// filters, freshness windows, and schedules in one reviewable file.
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	MasterList MasterList `yaml:"master_list" json:"master_list"`
	Screening  Screening  `yaml:"screening" json:"screening"`
	Collection Collection `yaml:"collection" json:"collection"`
	Scan       Scan       `yaml:"scan" json:"scan"`
	Schedules  Schedules  `yaml:"schedules" json:"schedules"`
}

// Meta identifies the strategy revision
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Universe configures ticker validation
type Universe struct {
	Workers    int `yaml:"workers" json:"workers"`
	BatchSize  int `yaml:"batch_size" json:"batch_size"`
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"`
}

// MasterList configures the quality-ranked pool
type MasterList struct {
	MinMarketCap float64  `yaml:"min_market_cap" json:"min_market_cap"`
	MinVolume    float64  `yaml:"min_volume" json:"min_volume"`
	Exchanges    []string `yaml:"exchanges" json:"exchanges"`
	TargetSize   int      `yaml:"target_size" json:"target_size"`
	MaxAgeDays   int      `yaml:"max_age_days" json:"max_age_days"`
}

// Screening configures the daily working set
type Screening struct {
	Size        int `yaml:"size" json:"size"`
	MaxAgeHours int `yaml:"max_age_hours" json:"max_age_hours"`
}

// Collection configures per-symbol data collection
type Collection struct {
	BatchSize   int `yaml:"batch_size" json:"batch_size"`
	HistoryDays int `yaml:"history_days" json:"history_days"`
	MaxAgeDays  int `yaml:"max_age_days" json:"max_age_days"`
}

// Scan configures scoring output thresholds
type Scan struct {
	WatchThreshold float64 `yaml:"watch_threshold" json:"watch_threshold"`
	AlertThreshold float64 `yaml:"alert_threshold" json:"alert_threshold"`
	TopN           int     `yaml:"top_n" json:"top_n"`
}

// Schedules holds the cron expressions (with seconds) for the
// scheduler jobs. Empty means the job's built-in default.
type Schedules struct {
	UniverseRefresh   string `yaml:"universe_refresh" json:"universe_refresh"`
	MasterListRefresh string `yaml:"master_list_refresh" json:"master_list_refresh"`
	DailyScan         string `yaml:"daily_scan" json:"daily_scan"`
}

// ConfigSnapshot pins the exact strategy a scan ran with, for
// reproducing results later.
type ConfigSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Default returns the built-in strategy used when no YAML is given
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "dipscan-default",
			Version:    "1",
			Timezone:   "America/New_York",
		},
		Universe: Universe{
			Workers:    5,
			BatchSize:  100,
			MaxAgeDays: 1,
		},
		MasterList: MasterList{
			MinMarketCap: 1e8,
			MinVolume:    100_000,
			Exchanges:    []string{"NMS", "NYQ", "NGM"},
			TargetSize:   2000,
			MaxAgeDays:   30,
		},
		Screening: Screening{
			Size:        500,
			MaxAgeHours: 24,
		},
		Collection: Collection{
			BatchSize:   150,
			HistoryDays: 365,
			MaxAgeDays:  7,
		},
		Scan: Scan{
			WatchThreshold: 50,
			AlertThreshold: 70,
			TopN:           20,
		},
		Schedules: Schedules{},
	}
}
