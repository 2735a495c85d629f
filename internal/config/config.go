// Package config holds the Arbiter configuration, loaded through viper from
// defaults, an optional YAML file, and ARBITER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Arbiter configuration
type Config struct {
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Ownership  OwnershipConfig  `mapstructure:"ownership"`
}

// DispatcherConfig controls admission and execution behavior
type DispatcherConfig struct {
	// MaxParallel is the hard cap on concurrently executing payloads (default: 4)
	MaxParallel int `mapstructure:"max_parallel"`
	// PollIntervalMs is the fallback re-check interval in milliseconds for
	// blocked tasks; the release broadcast normally wakes them first (default: 1000)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// PollInterval returns the poll interval as a duration.
func (c *DispatcherConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where the JSON log file is written; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// WatchConfig controls the drift watcher
type WatchConfig struct {
	// Enabled turns on out-of-band write detection during runs (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Root is the resource root to watch; empty means the working directory
	Root string `mapstructure:"root"`
}

// OwnershipConfig is the static actor-to-resource grant table
type OwnershipConfig struct {
	// Rules maps actor identity to allowed resource glob patterns.
	// Actors without an entry may not lock any resource.
	Rules map[string][]string `mapstructure:"rules"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Dispatcher: DispatcherConfig{
			MaxParallel:    4,
			PollIntervalMs: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Enabled: false,
		},
		Ownership: OwnershipConfig{
			Rules: map[string][]string{},
		},
	}
}

// SetDefaults registers default values with viper. Call before reading any
// config file so defaults apply even without one.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("dispatcher.max_parallel", defaults.Dispatcher.MaxParallel)
	viper.SetDefault("dispatcher.poll_interval_ms", defaults.Dispatcher.PollIntervalMs)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("watch.enabled", defaults.Watch.Enabled)
	viper.SetDefault("watch.root", defaults.Watch.Root)

	viper.SetDefault("ownership.rules", defaults.Ownership.Rules)
}

// Load unmarshals the current viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.Dispatcher.MaxParallel < 1 {
		return fmt.Errorf("dispatcher.max_parallel must be at least 1, got %d", c.Dispatcher.MaxParallel)
	}
	if c.Dispatcher.PollIntervalMs < 1 {
		return fmt.Errorf("dispatcher.poll_interval_ms must be at least 1, got %d", c.Dispatcher.PollIntervalMs)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// ConfigDir returns the directory where the config file lives.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "arbiter")
	}
	// Fall back to ~/.config/arbiter
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arbiter"
	}
	return filepath.Join(home, ".config", "arbiter")
}
