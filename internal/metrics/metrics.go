// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package metrics provides Prometheus instrumentation for sync runs,
// season cache behaviour and upstream API calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache result labels for CacheResults.
const (
	CacheHit            = "hit"
	CacheMissFetched    = "miss_fetched"
	CacheSkipPopulating = "skip_populating"
	CacheSkipBackoff    = "skip_backoff"
	CacheSkipLostRace   = "skip_lost_race"
	CacheFetchError     = "fetch_error"
)

var (
	// Sync run metrics
	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of full per-user sync runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"}, // "completed", "failed"
	)

	SyncItemsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_synced_total",
			Help: "Total records transformed and written, per collection",
		},
		[]string{"collection"},
	)

	SyncCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_collection_errors_total",
			Help: "Total isolated per-collection sync failures",
		},
		[]string{"collection"},
	)

	SyncRunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_runs_active",
			Help: "Number of sync runs currently in progress",
		},
	)

	SyncStaleRunsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_stale_runs_reset_total",
			Help: "Total stuck in_progress runs reset by the janitor",
		},
	)

	// Season cache metrics
	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_cache_results_total",
			Help: "Season cache lookup outcomes",
		},
		[]string{"result"},
	)

	// Upstream API metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)

	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_request_errors_total",
			Help: "Total upstream API request failures",
		},
		[]string{"service", "endpoint"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordSyncRun records the duration and outcome of one full sync run.
func RecordSyncRun(duration time.Duration, outcome string) {
	SyncRunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
