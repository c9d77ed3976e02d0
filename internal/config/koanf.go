// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/traktmirror/config.yaml",
	"/etc/traktmirror/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "TRAKTMIRROR_CONFIG"

// envPrefix is stripped from environment variables before mapping.
const envPrefix = "TRAKTMIRROR_"

// Load builds the configuration from defaults, then the config file if
// one exists, then TRAKTMIRROR_-prefixed environment variables, and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first readable config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps prefix-stripped environment variable names to config
// paths. Unmapped variables are ignored so unrelated TRAKTMIRROR_* vars
// cannot pollute the configuration.
var envMappings = map[string]string{
	"host":               "server.host",
	"port":               "server.port",
	"shutdown_timeout":   "server.shutdown_timeout",
	"rate_limit_api":     "server.rate_limit_api",
	"rate_limit_trigger": "server.rate_limit_trigger",
	"rate_limit_window":  "server.rate_limit_window",

	"store_path":       "store.path",
	"store_batch_size": "store.batch_size",

	"trakt_base_url":      "trakt.base_url",
	"trakt_client_id":     "trakt.client_id",
	"trakt_client_secret": "trakt.client_secret",
	"trakt_timeout":       "trakt.timeout",
	"trakt_rate_limit":    "trakt.rate_limit",
	"trakt_burst":         "trakt.burst",

	"tmdb_base_url": "tmdb.base_url",
	"tmdb_api_key":  "tmdb.api_key",
	"tmdb_timeout":  "tmdb.timeout",

	"janitor_interval":  "sync.janitor_interval",
	"stuck_run_timeout": "sync.stuck_run_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
