package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Config represents the complete application configuration.
// Precedence, lowest first: built-in defaults, YAML config file, environment, runtime overrides.
type Config struct {
	HubSpot   HubSpotConfig   `mapstructure:"hubspot"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HubSpotConfig identifies the portal and the defaults applied to created records.
type HubSpotConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	DefaultOwnerID    string        `mapstructure:"default_owner_id"`
	DefaultPipelineID string        `mapstructure:"default_pipeline_id"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig sizes the two limiter tiers.
type RateLimitConfig struct {
	BurstCapacity int           `mapstructure:"burst_capacity"`
	BurstWindow   time.Duration `mapstructure:"burst_window"`
	DailyCapacity int           `mapstructure:"daily_capacity"`
	DailyWindow   time.Duration `mapstructure:"daily_window"`
	MaxDailyWait  time.Duration `mapstructure:"max_daily_wait"`
}

type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BaseBackoff       time.Duration `mapstructure:"base_backoff"`
	RetryAfterDefault time.Duration `mapstructure:"retry_after_default"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format selects the encoder
	// Valid values: console, json
	Format string `mapstructure:"format"`
}

// Validate reports values no client can run with. A missing API key is not an error here because
// commands such as version never talk to HubSpot.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	rl := c.RateLimit
	switch {
	case rl.BurstCapacity <= 0:
		return fmt.Errorf("rate_limit.burst_capacity must be positive, got %d", rl.BurstCapacity)
	case rl.BurstWindow <= 0:
		return fmt.Errorf("rate_limit.burst_window must be positive, got %s", rl.BurstWindow)
	case rl.DailyCapacity <= 0:
		return fmt.Errorf("rate_limit.daily_capacity must be positive, got %d", rl.DailyCapacity)
	case rl.DailyWindow <= 0:
		return fmt.Errorf("rate_limit.daily_window must be positive, got %s", rl.DailyWindow)
	case rl.MaxDailyWait < 0:
		return fmt.Errorf("rate_limit.max_daily_wait must not be negative, got %s", rl.MaxDailyWait)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseBackoff < 0 || c.Retry.RetryAfterDefault < 0 {
		return fmt.Errorf("retry durations must not be negative")
	}
	if c.HubSpot.Timeout < 0 {
		return fmt.Errorf("hubspot.timeout must not be negative, got %s", c.HubSpot.Timeout)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}
	return nil
}

// ClientConfig maps the hubspot section onto the client's connection config.
func (c *Config) ClientConfig() hubspot.ClientConfig {
	return hubspot.ClientConfig{
		APIKey:            c.HubSpot.APIKey,
		DefaultOwnerID:    c.HubSpot.DefaultOwnerID,
		DefaultPipelineID: c.HubSpot.DefaultPipelineID,
		BaseURL:           c.HubSpot.BaseURL,
		Timeout:           c.HubSpot.Timeout,
	}
}

func (c *Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		BurstCapacity: c.RateLimit.BurstCapacity,
		BurstWindow:   c.RateLimit.BurstWindow,
		DailyCapacity: c.RateLimit.DailyCapacity,
		DailyWindow:   c.RateLimit.DailyWindow,
		MaxDailyWait:  c.RateLimit.MaxDailyWait,
	}
}

func (c *Config) RetryPolicy() hubspot.RetryPolicy {
	return hubspot.RetryPolicy{
		MaxAttempts:       c.Retry.MaxAttempts,
		Backoff:           hubspot.ExponentialBackoff(c.Retry.BaseBackoff),
		RetryAfterDefault: c.Retry.RetryAfterDefault,
		Retryable:         hubspot.DefaultRetryable,
	}
}
