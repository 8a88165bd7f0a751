package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the strategy YAML and returns the Config with its raw
// bytes. Unknown fields fail immediately: a typo must never become a
// silently ignored filter.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Hash generates a SHA256 hash of the Config via canonical JSON.
// Structs, not maps, keep the field order deterministic.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewConfigSnapshot pins a loaded strategy for later reproduction
func NewConfigSnapshot(cfg *Config, yamlData []byte) (*ConfigSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &ConfigSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		StrategyID: cfg.Meta.StrategyID,
		CreatedAt:  time.Now(),
	}, nil
}
