// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and SIDELINE_ environment variables over them.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file. ":memory:" selects the in-memory store.
	DatabasePath string `koanf:"database_path"`

	// Timezone is the IANA zone used for season boundaries.
	Timezone string `koanf:"timezone"`

	// WorkerCount sets the number of attendance check workers.
	WorkerCount int `koanf:"worker_count"`

	// CheckInQueueSize bounds the attendance check queue.
	CheckInQueueSize int `koanf:"checkin_queue_size"`

	// StatusCacheTTLMS is how long a cached suspension status stays fresh.
	StatusCacheTTLMS int `koanf:"status_cache_ttl_ms"`

	// CacheSweepIntervalMS and MetricsIntervalMS drive the scheduled jobs.
	CacheSweepIntervalMS int `koanf:"cache_sweep_interval_ms"`
	MetricsIntervalMS    int `koanf:"metrics_interval_ms"`

	// YellowThreshold is the number of season yellows that triggers a suspension.
	YellowThreshold int `koanf:"yellow_threshold"`

	// MinSuspensionEvents and MaxSuspensionEvents bound a suspension length.
	MinSuspensionEvents int `koanf:"min_suspension_events"`
	MaxSuspensionEvents int `koanf:"max_suspension_events"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DatabasePath:         "sideline.db",
		Timezone:             "America/Los_Angeles",
		WorkerCount:          runtime.NumCPU(),
		CheckInQueueSize:     1024,
		StatusCacheTTLMS:     30_000,
		CacheSweepIntervalMS: 60_000,
		MetricsIntervalMS:    10_000,
		YellowThreshold:      3,
		MinSuspensionEvents:  1,
		MaxSuspensionEvents:  10,
	}
}

// StatusCacheTTL returns the cache TTL as a duration.
func (c *Config) StatusCacheTTL() time.Duration {
	return time.Duration(c.StatusCacheTTLMS) * time.Millisecond
}

// CacheSweepInterval returns the cache sweep interval as a duration.
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.CacheSweepIntervalMS) * time.Millisecond
}

// MetricsInterval returns the system metrics refresh interval as a duration.
func (c *Config) MetricsInterval() time.Duration {
	return time.Duration(c.MetricsIntervalMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatabasePath == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.CheckInQueueSize <= 0:
		return fmt.Errorf("%w: checkin_queue_size must be positive", ErrInvalidConfig)
	case c.StatusCacheTTLMS < 0:
		return fmt.Errorf("%w: status_cache_ttl_ms must not be negative", ErrInvalidConfig)
	case c.CacheSweepIntervalMS <= 0 || c.MetricsIntervalMS <= 0:
		return fmt.Errorf("%w: job intervals must be positive", ErrInvalidConfig)
	case c.YellowThreshold <= 0:
		return fmt.Errorf("%w: yellow_threshold must be positive", ErrInvalidConfig)
	case c.MinSuspensionEvents <= 0 || c.MaxSuspensionEvents < c.MinSuspensionEvents:
		return fmt.Errorf("%w: suspension bounds %d..%d", ErrInvalidConfig, c.MinSuspensionEvents, c.MaxSuspensionEvents)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
