// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv provides the credentials Load refuses to default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRAKTMIRROR_TRAKT_CLIENT_ID", "cid")
	t.Setenv("TRAKTMIRROR_TRAKT_CLIENT_SECRET", "csecret")
	t.Setenv("TRAKTMIRROR_TMDB_API_KEY", "tmdbkey")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("server port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:8480" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}
	if cfg.Sync.StuckRunTimeout != 2*time.Hour {
		t.Errorf("stuck run timeout = %v, want 2h", cfg.Sync.StuckRunTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Trakt.ClientID != "cid" {
		t.Errorf("trakt client id = %q, want env value", cfg.Trakt.ClientID)
	}
}

func TestLoadFailsWithoutCredentials(t *testing.T) {
	// No credentials anywhere: validation must reject the config.
	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without required credentials")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRAKTMIRROR_PORT", "9000")
	t.Setenv("TRAKTMIRROR_LOG_LEVEL", "debug")
	t.Setenv("TRAKTMIRROR_STUCK_RUN_TIMEOUT", "4h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Sync.StuckRunTimeout != 4*time.Hour {
		t.Errorf("stuck run timeout = %v, want 4h", cfg.Sync.StuckRunTimeout)
	}
}

func TestLoadIgnoresUnmappedEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRAKTMIRROR_UNKNOWN_SETTING", "value")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v, unmapped vars must be ignored", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7000\nlogging:\n  format: console\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("format = %s, want console from file", cfg.Logging.Format)
	}
}

func TestLoadEnvBeatsConfigFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("TRAKTMIRROR_PORT", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env override 9001", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"zero trakt rate", func(c *Config) { c.Trakt.RateLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Trakt.ClientID = "cid"
			cfg.Trakt.ClientSecret = "csecret"
			cfg.TMDB.APIKey = "key"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() passed, want error")
			}
		})
	}
}
