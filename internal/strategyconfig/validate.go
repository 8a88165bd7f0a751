package strategyconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError is a fatal configuration problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but questionable setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints; any failure aborts
// startup rather than letting a typo silently reshape the pipeline.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Universe ===
	if cfg.Universe.Workers < 1 {
		return ValidationError{"universe.workers", "must be >= 1"}
	}
	if cfg.Universe.BatchSize < 1 {
		return ValidationError{"universe.batch_size", "must be >= 1"}
	}
	if cfg.Universe.MaxAgeDays < 1 {
		return ValidationError{"universe.max_age_days", "must be >= 1"}
	}

	// === MasterList ===
	if cfg.MasterList.MinMarketCap <= 0 {
		return ValidationError{"master_list.min_market_cap", "must be > 0"}
	}
	if cfg.MasterList.MinVolume < 0 {
		return ValidationError{"master_list.min_volume", "must be >= 0"}
	}
	if len(cfg.MasterList.Exchanges) == 0 {
		return ValidationError{"master_list.exchanges", "required"}
	}
	if cfg.MasterList.TargetSize < 1 {
		return ValidationError{"master_list.target_size", "must be >= 1"}
	}

	// === Screening ===
	if cfg.Screening.Size < 1 {
		return ValidationError{"screening.size", "must be >= 1"}
	}
	if cfg.Screening.Size > cfg.MasterList.TargetSize {
		return ValidationError{"screening.size", fmt.Sprintf("must be <= master_list.target_size=%d", cfg.MasterList.TargetSize)}
	}

	// === Collection ===
	if cfg.Collection.BatchSize < 1 {
		return ValidationError{"collection.batch_size", "must be >= 1"}
	}
	if cfg.Collection.HistoryDays < 30 {
		return ValidationError{"collection.history_days", "must be >= 30 for the indicator windows"}
	}
	if cfg.Collection.MaxAgeDays < 1 {
		return ValidationError{"collection.max_age_days", "must be >= 1"}
	}

	// === Scan ===
	if cfg.Scan.WatchThreshold < 0 || cfg.Scan.WatchThreshold > 100 {
		return ValidationError{"scan.watch_threshold", "must be in [0, 100]"}
	}
	if cfg.Scan.AlertThreshold < cfg.Scan.WatchThreshold {
		return ValidationError{"scan.alert_threshold", "must be >= watch_threshold"}
	}
	if cfg.Scan.TopN < 1 {
		return ValidationError{"scan.top_n", "must be >= 1"}
	}

	// === Schedules ===
	if err := validateCron(cfg.Schedules.UniverseRefresh); err != nil {
		return ValidationError{"schedules.universe_refresh", err.Error()}
	}
	if err := validateCron(cfg.Schedules.MasterListRefresh); err != nil {
		return ValidationError{"schedules.master_list_refresh", err.Error()}
	}
	if err := validateCron(cfg.Schedules.DailyScan); err != nil {
		return ValidationError{"schedules.daily_scan", err.Error()}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Collection.HistoryDays < 250 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: "history_days < 250: 52-week drop and SMA200 signals will be degraded",
		})
	}

	if cfg.Screening.Size > 1000 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_SCREENING",
			Message: "screening.size > 1000: a daily collection pass may not fit the provider quota",
		})
	}

	if cfg.Scan.WatchThreshold < 40 {
		warnings = append(warnings, Warning{
			Code:    "NOISY_WATCHLIST",
			Message: "watch_threshold < 40: expect a crowded watchlist",
		})
	}

	return warnings
}

// validateCron accepts empty (job default) or a six-field expression
func validateCron(expr string) error {
	if expr == "" {
		return nil
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
