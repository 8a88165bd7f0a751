package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Paths
	CacheDir    string // JSON caches (stock_data.json, master_list.json, ...)
	OutputDir   string // exports, alert log
	StrategyFile string // pipeline criteria YAML

	// Market data provider
	Provider ProviderConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// ProviderConfig holds market data provider settings, including the
// client-side throttle that keeps us under the free-tier quota.
type ProviderConfig struct {
	APIKey  string
	BaseURL string

	// Throttle
	MinCallInterval time.Duration // minimum gap between consecutive calls
	WindowLimit     int           // max calls per rolling window
	Window          time.Duration // rolling window size
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		CacheDir:     getEnv("CACHE_DIR", "cache"),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		StrategyFile: getEnv("STRATEGY_FILE", "strategy.yaml"),

		Provider: ProviderConfig{
			APIKey:          getEnv("FINNHUB_API_KEY", ""),
			BaseURL:         getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			MinCallInterval: getEnvAsDuration("PROVIDER_MIN_CALL_INTERVAL", "1100ms"),
			WindowLimit:     getEnvAsInt("PROVIDER_WINDOW_LIMIT", 55),
			Window:          getEnvAsDuration("PROVIDER_WINDOW", "60s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Provider.WindowLimit <= 0 {
		return fmt.Errorf("PROVIDER_WINDOW_LIMIT must be positive")
	}
	if c.Provider.MinCallInterval < 0 {
		return fmt.Errorf("PROVIDER_MIN_CALL_INTERVAL must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
