// Package config loads and persists dejavu configuration from
// .dejavu/config.yaml, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dejavu configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Rejected-plan memory
	Memory MemoryConfig `yaml:"memory"`

	// Near-duplicate search
	Similarity SimilarityConfig `yaml:"similarity"`

	// Plan directory watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// MemoryConfig configures the rejected-plan registry.
type MemoryConfig struct {
	RegistryPath string `yaml:"registry_path"`
	MaxRecords   int    `yaml:"max_records"` // 0 = unbounded
}

// SimilarityConfig configures fingerprint similarity search.
type SimilarityConfig struct {
	Threshold          float64 `yaml:"threshold"`
	Parallel           bool    `yaml:"parallel"`
	ParallelMinRecords int     `yaml:"parallel_min_records"` // records below this always scan sequentially
	Shards             int     `yaml:"shards"`
}

// WatchConfig configures the plan directory watcher.
type WatchConfig struct {
	Dir        string `yaml:"dir"`
	DebounceMS int    `yaml:"debounce_ms"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "dejavu",
		Version: "1.0.0",

		Memory: MemoryConfig{
			RegistryPath: filepath.Join(".dejavu", "rejected.json"),
			MaxRecords:   0,
		},

		Similarity: SimilarityConfig{
			Threshold:          0.85,
			Parallel:           false,
			ParallelMinRecords: 1024,
			Shards:             4,
		},

		Watch: WatchConfig{
			Dir:        "plans",
			DebounceMS: 500,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("DEJAVU_REGISTRY"); path != "" {
		c.Memory.RegistryPath = path
	}
	if raw := os.Getenv("DEJAVU_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Similarity.Threshold = v
		}
	}
	if raw := os.Getenv("DEJAVU_DEBUG"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.Logging.DebugMode = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Similarity.Threshold < 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1, got %g", c.Similarity.Threshold)
	}
	if c.Similarity.Shards < 1 {
		return fmt.Errorf("similarity shards must be at least 1, got %d", c.Similarity.Shards)
	}
	if c.Memory.MaxRecords < 0 {
		return fmt.Errorf("memory max_records cannot be negative, got %d", c.Memory.MaxRecords)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch debounce_ms cannot be negative, got %d", c.Watch.DebounceMS)
	}
	return nil
}

// GetDebounce returns the watcher debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// DefaultConfigPath returns the default path to .dejavu/config.yaml.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".dejavu", "config.yaml")
	}
	return filepath.Join(cwd, ".dejavu", "config.yaml")
}
