// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package sync drives one full synchronization pass per user: it pulls
// each Trakt collection in a fixed order, transforms and merge-upserts
// the records into the user's store collections, enriches watched
// episodes through the season cache, and maintains the user's single
// SyncStatus document.
//
// Failure isolation: one collection's failure is recorded as a tagged
// error on the run and never stops the remaining collections. The only
// fatal error is an AuthError from the credential provider.
//
// The orchestrator must not run twice concurrently for the same user;
// the trigger layer enforces that by checking SyncStatus before
// dispatch.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/metrics"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
	"github.com/tomtom215/traktmirror/internal/trakt"
)

// TokenProvider hands out a valid bearer token for a user.
type TokenProvider interface {
	Valid(ctx context.Context, userID string) (string, error)
}

// Enricher merges season metadata into episode records, returning only
// the records that changed.
type Enricher interface {
	Enrich(ctx context.Context, showID int, records map[string]models.EpisodeRecord) map[string]models.EpisodeRecord
}

// Orchestrator runs per-user sync passes.
type Orchestrator struct {
	store    *store.Store
	source   trakt.ClientInterface
	tokens   TokenProvider
	enricher Enricher

	now func() time.Time
}

// New creates an Orchestrator.
func New(s *store.Store, source trakt.ClientInterface, tokens TokenProvider, enricher Enricher) *Orchestrator {
	return &Orchestrator{
		store:    s,
		source:   source,
		tokens:   tokens,
		enricher: enricher,
		now:      time.Now,
	}
}

// collection is one independently pulled activity collection.
type collection struct {
	name string
	pull func(ctx context.Context, userID, token string) (int, error)
}

// collections returns the fixed, ordered set of pulls. Order affects
// only bookkeeping; every collection writes to disjoint key prefixes.
func (o *Orchestrator) collections() []collection {
	return []collection{
		{name: "watched_movies", pull: o.syncWatchedMovies},
		{name: "watched_episodes", pull: o.syncWatchedEpisodes},
		{name: "ratings", pull: o.syncRatings},
		{name: "watchlist", pull: o.syncWatchlist},
		{name: "favorites", pull: o.syncFavorites},
		{name: "lists", pull: o.syncLists},
	}
}

// Run performs one full sync pass for userID. The in_progress status is
// persisted before the first pull so concurrent status reads observe it
// immediately; the final status, counts and errors land in one atomic
// document write at the end. The returned error is non-nil only for the
// fatal credential case.
func (o *Orchestrator) Run(ctx context.Context, userID string) error {
	started := o.now()
	status := models.SyncStatus{
		State:       models.SyncStateInProgress,
		RunID:       uuid.NewString(),
		StartedAt:   started,
		ItemsSynced: make(map[string]int),
	}
	if err := o.store.SetDoc(store.SyncStatusKey(userID), &status); err != nil {
		return fmt.Errorf("persist in_progress status: %w", err)
	}

	metrics.SyncRunsActive.Inc()
	defer metrics.SyncRunsActive.Dec()

	runLog := logging.With().Str("user", userID).Str("run_id", status.RunID).Logger()
	runLog.Info().Msg("sync run started")

	token, err := o.tokens.Valid(ctx, userID)
	if err != nil {
		status.Errors = append(status.Errors, "auth: "+err.Error())
		o.finalize(userID, &status, started)
		runLog.Error().Err(err).Msg("sync run aborted: credentials unusable")
		return err
	}

	for _, col := range o.collections() {
		count, pullErr := col.pull(ctx, userID, token)
		status.ItemsSynced[col.name] = count

		if pullErr != nil {
			// Isolated failure: tag it, count it, keep going.
			status.Errors = append(status.Errors, col.name+": "+pullErr.Error())
			metrics.SyncCollectionErrors.WithLabelValues(col.name).Inc()
			runLog.Warn().Err(pullErr).Str("collection", col.name).Msg("collection sync failed")

			var authErr *models.AuthError
			if errors.As(pullErr, &authErr) {
				runLog.Error().Msg("credentials revoked mid-run, aborting remaining collections")
				break
			}
			continue
		}

		metrics.SyncItemsSynced.WithLabelValues(col.name).Add(float64(count))
		runLog.Debug().Str("collection", col.name).Int("items", count).Msg("collection synced")
	}

	o.finalize(userID, &status, started)
	runLog.Info().
		Str("state", string(status.State)).
		Int("errors", len(status.Errors)).
		Dur("duration", o.now().Sub(started)).
		Msg("sync run finished")
	return nil
}

// finalize computes the final state and persists counts, errors and
// timestamps in a single status write.
func (o *Orchestrator) finalize(userID string, status *models.SyncStatus, started time.Time) {
	if len(status.Errors) > 0 {
		status.State = models.SyncStateFailed
	} else {
		status.State = models.SyncStateCompleted
	}
	status.LastSyncedAt = o.now()

	if err := o.store.SetDoc(store.SyncStatusKey(userID), status); err != nil {
		logging.Error().Err(err).Str("user", userID).Msg("failed to persist final sync status")
	}
	metrics.RecordSyncRun(o.now().Sub(started), string(status.State))
}
