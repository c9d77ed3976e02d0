// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Command server runs the traktmirror service: an HTTP API that
// triggers and reports per-user Trakt sync runs, backed by BadgerDB
// and enriched with TMDB season metadata.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/traktmirror/internal/api"
	"github.com/tomtom215/traktmirror/internal/config"
	"github.com/tomtom215/traktmirror/internal/enrich"
	"github.com/tomtom215/traktmirror/internal/janitor"
	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/seasoncache"
	"github.com/tomtom215/traktmirror/internal/store"
	"github.com/tomtom215/traktmirror/internal/supervisor"
	"github.com/tomtom215/traktmirror/internal/sync"
	"github.com/tomtom215/traktmirror/internal/tmdb"
	"github.com/tomtom215/traktmirror/internal/tokens"
	"github.com/tomtom215/traktmirror/internal/trakt"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("starting traktmirror")

	db, err := store.Open(store.Options{Path: cfg.Store.Path, BatchSize: cfg.Store.BatchSize})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("store close failed")
		}
	}()

	traktClient := trakt.NewClient(trakt.Config{
		BaseURL:      cfg.Trakt.BaseURL,
		ClientID:     cfg.Trakt.ClientID,
		ClientSecret: cfg.Trakt.ClientSecret,
		Timeout:      cfg.Trakt.Timeout,
		RateLimit:    cfg.Trakt.RateLimit,
		Burst:        cfg.Trakt.Burst,
	})
	tmdbClient := tmdb.NewCircuitBreakerClient(tmdb.NewClient(tmdb.Config{
		BaseURL: cfg.TMDB.BaseURL,
		APIKey:  cfg.TMDB.APIKey,
		Timeout: cfg.TMDB.Timeout,
	}))

	cache := seasoncache.New(db, tmdbClient)
	engine := enrich.New(cache)
	tokenProvider := tokens.NewProvider(db, traktClient)
	orchestrator := sync.New(db, traktClient, tokenProvider, engine)

	router := api.NewRouter(api.NewHandler(db, orchestrator), api.RateLimits{
		API:     cfg.Server.RateLimitAPI,
		Trigger: cfg.Server.RateLimitTrigger,
		Window:  cfg.Server.RateLimitWindow,
	})
	server := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     router,
		ReadTimeout: cfg.Trakt.Timeout,
	}

	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(janitor.New(db, cfg.Sync.JanitorInterval, cfg.Sync.StuckRunTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("traktmirror stopped")
	return nil
}
