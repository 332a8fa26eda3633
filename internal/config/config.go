// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and lower_snake_case so they map 1:1 onto env vars.
// - New returns a Config holding every default; Load layers file and env on top.
// - Validate reports problems wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ExpansionURL is the base URL of the semantic-expansion service.
	ExpansionURL string `koanf:"expansion_url"`

	// ExpansionTimeoutMS bounds a single expansion call.
	ExpansionTimeoutMS int `koanf:"expansion_timeout_ms"`

	// ExpansionRateLimitRPS caps outgoing expansion calls; 0 disables limiting.
	ExpansionRateLimitRPS float64 `koanf:"expansion_rate_limit_rps"`

	// ExpansionBurst is the limiter bucket size.
	ExpansionBurst int `koanf:"expansion_burst"`

	// RedisAddr enables the expansion cache when set, e.g. "localhost:6379".
	RedisAddr string `koanf:"redis_addr"`

	// ExpansionCacheTTLS is how long cached expansions live.
	ExpansionCacheTTLS int `koanf:"expansion_cache_ttl_s"`

	// StoreDriver selects the entity store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// RunMigrations applies embedded migrations on start (postgres only).
	RunMigrations bool `koanf:"run_migrations"`

	// PeopleMinOverlap is the shared-tag threshold for user suggestions.
	PeopleMinOverlap int `koanf:"people_min_overlap"`

	// SessionMinOverlap is the shared-tag threshold for session suggestions.
	SessionMinOverlap int `koanf:"session_min_overlap"`

	// ShutdownTimeoutMS bounds graceful shutdown, including draining enrichment.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		ExpansionURL:          "http://127.0.0.1:5000/api/v1",
		ExpansionTimeoutMS:    30_000,
		ExpansionRateLimitRPS: 0,
		ExpansionBurst:        1,
		ExpansionCacheTTLS:    3600,
		StoreDriver:           DriverMemory,
		RunMigrations:         true,
		PeopleMinOverlap:      1,
		SessionMinOverlap:     2,
		ShutdownTimeoutMS:     30_000,
	}
}

// ExpansionTimeout returns ExpansionTimeoutMS as a duration.
func (c *Config) ExpansionTimeout() time.Duration {
	return time.Duration(c.ExpansionTimeoutMS) * time.Millisecond
}

// ExpansionCacheTTL returns ExpansionCacheTTLS as a duration.
func (c *Config) ExpansionCacheTTL() time.Duration {
	return time.Duration(c.ExpansionCacheTTLS) * time.Second
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ExpansionURL == "":
		return fmt.Errorf("%w: expansion_url must not be empty", ErrInvalidConfig)
	case c.ExpansionTimeoutMS <= 0:
		return fmt.Errorf("%w: expansion_timeout_ms must be positive", ErrInvalidConfig)
	case c.ExpansionRateLimitRPS < 0:
		return fmt.Errorf("%w: expansion_rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.PeopleMinOverlap < 1 || c.SessionMinOverlap < 1:
		return fmt.Errorf("%w: min overlap thresholds must be at least 1", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
