package config

import (
	"context"
	"fmt"
	"time"
)

// Config holds all application configuration. Keys are flat so that
// LEADGEN_MAX_RESULTS_CAP maps straight onto max_results_cap.
type Config struct {
	LogLevel string `koanf:"log_level"`
	Addr     string `koanf:"addr"`

	OutputDir   string `koanf:"output_dir"`
	DatabaseURL string `koanf:"database_url"`

	HunterAPIKey  string `koanf:"hunter_api_key"`
	HunterBaseURL string `koanf:"hunter_base_url"`

	MinDelayMs        int     `koanf:"min_delay_ms"`
	MaxDelayMs        int     `koanf:"max_delay_ms"`
	RateLimitPerSec   float64 `koanf:"rate_limit_per_sec"`
	MaxRetries        int     `koanf:"max_retries"`
	RetryBaseDelayMs  int     `koanf:"retry_base_delay_ms"`
	FetchFailureLimit int     `koanf:"fetch_failure_limit"`

	PageSize          int `koanf:"page_size"`
	MaxResultsCap     int `koanf:"max_results_cap"`
	DefaultMaxResults int `koanf:"default_max_results"`

	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	PageTimeoutMs int    `koanf:"page_timeout_ms"`
	ChromeBin     string `koanf:"chrome_bin"`
	Headless      bool   `koanf:"headless"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":8000",

		OutputDir: "./exports",

		HunterBaseURL: "https://api.hunter.io/v2",

		MinDelayMs:        500,
		MaxDelayMs:        1000,
		MaxRetries:        3,
		RetryBaseDelayMs:  500,
		FetchFailureLimit: 3,

		PageSize:          10,
		MaxResultsCap:     200,
		DefaultMaxResults: 50,

		ConfidenceThreshold: 0.5,

		PageTimeoutMs: 60_000,
		Headless:      true,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinDelayMs < 0 || c.MaxDelayMs < c.MinDelayMs:
		return fmt.Errorf("%w: delay bounds must satisfy 0 <= min_delay_ms <= max_delay_ms", ErrInvalidConfig)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	case c.PageSize < 1:
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	case c.MaxResultsCap < 1:
		return fmt.Errorf("%w: max_results_cap must be positive", ErrInvalidConfig)
	case c.DefaultMaxResults < 1 || c.DefaultMaxResults > c.MaxResultsCap:
		return fmt.Errorf("%w: default_max_results must be within 1..max_results_cap", ErrInvalidConfig)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence_threshold must be within [0,1]", ErrInvalidConfig)
	case c.RateLimitPerSec < 0:
		return fmt.Errorf("%w: rate_limit_per_sec must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutMs) * time.Millisecond
}
