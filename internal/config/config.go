// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then environment variables, each layer overriding
// the previous one.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Trakt   TraktConfig   `koanf:"trakt"`
	TMDB    TMDBConfig    `koanf:"tmdb"`
	Sync    SyncConfig    `koanf:"sync"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`

	// RateLimitAPI and RateLimitTrigger are per-IP request budgets per
	// RateLimitWindow.
	RateLimitAPI     int           `koanf:"rate_limit_api" validate:"min=1"`
	RateLimitTrigger int           `koanf:"rate_limit_trigger" validate:"min=1"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig configures the BadgerDB document store.
type StoreConfig struct {
	Path      string `koanf:"path" validate:"required"`
	BatchSize int    `koanf:"batch_size" validate:"min=1"`
}

// TraktConfig configures the Trakt API client.
type TraktConfig struct {
	BaseURL      string        `koanf:"base_url"`
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=1s"`
	RateLimit    float64       `koanf:"rate_limit" validate:"gt=0"`
	Burst        int           `koanf:"burst" validate:"min=1"`
}

// TMDBConfig configures the TMDB API client.
type TMDBConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`
}

// SyncConfig configures the sync run lifecycle.
type SyncConfig struct {
	// JanitorInterval is how often abandoned runs are swept.
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"min=1m"`

	// StuckRunTimeout is how old an in_progress run must be before the
	// janitor resets it to failed.
	StuckRunTimeout time.Duration `koanf:"stuck_run_timeout" validate:"min=1m"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the built-in defaults. Credentials have no
// default and must come from the config file or environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8480,
			ShutdownTimeout:  10 * time.Second,
			RateLimitAPI:     300,
			RateLimitTrigger: 10,
			RateLimitWindow:  time.Minute,
		},
		Store: StoreConfig{
			Path:      "/data/traktmirror",
			BatchSize: 500,
		},
		Trakt: TraktConfig{
			BaseURL:   "https://api.trakt.tv",
			Timeout:   30 * time.Second,
			RateLimit: 3,
			Burst:     5,
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			JanitorInterval: 10 * time.Minute,
			StuckRunTimeout: 2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
