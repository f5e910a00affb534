// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Reorder  ReorderConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds the SQLite path and the admin account created on
// first run.
type DatabaseConfig struct {
	Path      string
	AdminUser string
}

// LogConfig controls log output.
type LogConfig struct {
	File  string
	Level string
}

// ReorderConfig holds the cron schedule of the low-stock check. An empty
// schedule disables it.
type ReorderConfig struct {
	Schedule string
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Load reads environment variables, first applying envFile if given or a
// .env in the working directory otherwise. Variables already set in the
// environment win over file values.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	metricsEnabled, err := strconv.ParseBool(getenvWithDefault("ZALOGA_METRICS", "true"))
	if err != nil {
		return nil, fmt.Errorf("ZALOGA_METRICS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: getenvWithDefault("ZALOGA_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			Path:      getenvWithDefault("ZALOGA_DB", "zaloga.sqlite3"),
			AdminUser: getenvWithDefault("ZALOGA_ADMIN_USER", "Admin"),
		},
		Log: LogConfig{
			File:  os.Getenv("ZALOGA_LOG"),
			Level: getenvWithDefault("ZALOGA_LOG_LEVEL", "info"),
		},
		Reorder: ReorderConfig{
			Schedule: getenvWithDefault("ZALOGA_REORDER_SCHEDULE", "0 7 * * *"),
		},
		Metrics: MetricsConfig{
			Enabled: metricsEnabled,
		},
	}

	return cfg, nil
}

// Validate checks that required values are present and well formed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch {
	case c.Server.Addr == "":
		return errors.New("ZALOGA_ADDR must not be empty")
	case c.Database.Path == "":
		return errors.New("ZALOGA_DB must not be empty")
	case strings.TrimSpace(c.Database.AdminUser) == "":
		return errors.New("ZALOGA_ADMIN_USER must not be empty")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Reorder.Schedule != "" {
		if _, err := cron.ParseStandard(c.Reorder.Schedule); err != nil {
			return fmt.Errorf("ZALOGA_REORDER_SCHEDULE: %w", err)
		}
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("ZALOGA_LOG_LEVEL: unknown level %q", name)
	}
	return level, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
