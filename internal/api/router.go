// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimits configures the per-IP request budgets.
type RateLimits struct {
	// API bounds all /api/v1 traffic.
	API int
	// Trigger bounds sync trigger POSTs, which fan out into full
	// upstream pulls and deserve a much tighter budget.
	Trigger int
	// Window is the limiting window for both budgets.
	Window time.Duration
}

// DefaultRateLimits returns the production defaults.
func DefaultRateLimits() RateLimits {
	return RateLimits{API: 300, Trigger: 10, Window: time.Minute}
}

// NewRouter assembles the HTTP surface: sync trigger and status under
// /api/v1, plus liveness and Prometheus endpoints outside the rate
// limited tree.
func NewRouter(h *Handler, limits RateLimits) http.Handler {
	if limits.API <= 0 || limits.Trigger <= 0 || limits.Window <= 0 {
		limits = DefaultRateLimits()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(limits.API, limits.Window))

		r.With(httprate.LimitByIP(limits.Trigger, limits.Window)).
			Post("/users/{userID}/sync", h.TriggerSync)
		r.Get("/users/{userID}/sync/status", h.SyncStatus)
	})

	return r
}
