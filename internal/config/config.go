// Package config loads dashboard server configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all tunables for the roadwatch server and CLI.
//
// Precedence: defaults < YAML file < environment.
type Config struct {
	// Addr is the HTTP listen address of the dashboard API.
	Addr string `yaml:"addr" env:"ROADWATCH_ADDR"`

	// Database is the path to the SQLite snapshot database.
	Database string `yaml:"database" env:"ROADWATCH_DB"`

	// Collections lists the registered collection names in declaration
	// order.
	Collections []string `yaml:"collections" env:"ROADWATCH_COLLECTIONS" envSeparator:","`

	// NotificationCap bounds the notification log.
	NotificationCap int `yaml:"notification_cap" env:"ROADWATCH_NOTIFICATION_CAP"`

	// RecentLimit is the default number of notifications in overview
	// payloads.
	RecentLimit int `yaml:"recent_limit" env:"ROADWATCH_RECENT_LIMIT"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"ROADWATCH_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Database:        "roadwatch.db",
		Collections:     []string{"users", "vehicles", "violations", "fines"},
		NotificationCap: 50,
		RecentLimit:     10,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (skipped when path is empty), and environment overrides, then
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Collections) == 0 {
		return fmt.Errorf("config: at least one collection is required")
	}
	if c.NotificationCap < 1 {
		return fmt.Errorf("config: notification_cap must be at least 1, got %d", c.NotificationCap)
	}
	if c.RecentLimit < 0 {
		return fmt.Errorf("config: recent_limit must not be negative, got %d", c.RecentLimit)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
