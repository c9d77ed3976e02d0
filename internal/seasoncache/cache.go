// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package seasoncache is the globally shared, TTL-governed cache of TMDB
// season metadata. It guarantees at most one upstream fetch per
// (show, season) key per staleness cycle under any concurrency.
//
// The single-flight here is non-blocking: callers that lose the
// populate race get ErrSkip instead of the winner's result, and are
// expected to come back on a later sync pass. The cache is one keyspace
// shared by all users; entries are never partitioned per user.
package seasoncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/metrics"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
)

// ErrSkip signals that no entry is available right now and no upstream
// call was made on the caller's behalf: another execution is populating
// the key, the key is inside its error-backoff window, or this caller
// lost the populate race. Skipping is deferral, not failure.
var ErrSkip = errors.New("season entry unavailable, deferred")

// CatalogClient fetches one season's episodes from the catalog service.
type CatalogClient interface {
	SeasonEpisodes(ctx context.Context, showID, season int) ([]models.SeasonEpisode, error)
}

// Cache is the season metadata cache. Entries live in the shared store
// under a global keyspace; the store's serializable transactions provide
// the atomic read-decide-write that makes the populate transition safe.
type Cache struct {
	store   *store.Store
	catalog CatalogClient

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Cache over the shared store and catalog client.
func New(s *store.Store, catalog CatalogClient) *Cache {
	return &Cache{
		store:   s,
		catalog: catalog,
		now:     time.Now,
	}
}

// fetchDecision is the outcome of the atomic read-decide-write step.
type fetchDecision int

const (
	decisionSkip fetchDecision = iota
	decisionServe
	decisionFetch
)

// GetOrFetch returns the cached entry for (showID, season), fetching from
// the catalog service first if the entry is missing or stale. It returns
// ErrSkip whenever serving would require an upstream call that some other
// execution already owns, or that the error-backoff window forbids.
func (c *Cache) GetOrFetch(ctx context.Context, showID, season int) (*models.SeasonEntry, error) {
	key := store.SeasonCacheKey(showID, season)
	now := c.now()

	var entry models.SeasonEntry
	var decision fetchDecision

	err := c.store.Update(func(tx *store.Txn) error {
		err := tx.GetDoc(key, &entry)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		exists := err == nil

		switch {
		case exists && entry.State == models.SeasonStatePopulating:
			decision = decisionSkip
			metrics.CacheResults.WithLabelValues(metrics.CacheSkipPopulating).Inc()
			return nil

		case exists && entry.State == models.SeasonStateError && now.Sub(entry.LastUpdated) < errorBackoff:
			decision = decisionSkip
			metrics.CacheResults.WithLabelValues(metrics.CacheSkipBackoff).Inc()
			return nil

		case exists && entry.State == models.SeasonStateComplete && !stale(&entry, now):
			decision = decisionServe
			metrics.CacheResults.WithLabelValues(metrics.CacheHit).Inc()
			return nil

		default:
			// Claim the populate right. The Episodes map stays in place so
			// a failed refresh cannot erase last-known-good data.
			entry.State = models.SeasonStatePopulating
			entry.LastUpdated = now
			decision = decisionFetch
			return tx.SetDoc(key, entry)
		}
	})

	if store.IsConflict(err) {
		// A concurrent caller committed first; exactly one winner proceeds.
		metrics.CacheResults.WithLabelValues(metrics.CacheSkipLostRace).Inc()
		return nil, ErrSkip
	}
	if err != nil {
		return nil, fmt.Errorf("season cache transition %s: %w", key, err)
	}

	switch decision {
	case decisionSkip:
		return nil, ErrSkip
	case decisionServe:
		return &entry, nil
	}

	return c.fetch(ctx, key, showID, season)
}

// fetch performs the upstream call this execution won the right to make,
// then records the outcome.
func (c *Cache) fetch(ctx context.Context, key string, showID, season int) (*models.SeasonEntry, error) {
	start := c.now()
	episodes, err := c.catalog.SeasonEpisodes(ctx, showID, season)
	metrics.UpstreamRequestDuration.WithLabelValues("tmdb", "season").Observe(c.now().Sub(start).Seconds())

	if err != nil {
		logging.Warn().Err(err).Int("show", showID).Int("season", season).Msg("season fetch failed")
		metrics.CacheResults.WithLabelValues(metrics.CacheFetchError).Inc()
		if werr := c.writeError(key); werr != nil {
			logging.Error().Err(werr).Str("key", key).Msg("failed to record season fetch error")
		}
		return nil, ErrSkip
	}

	fresh := make(map[int]models.EpisodeMeta, len(episodes))
	for _, ep := range episodes {
		// Retain only the fields enrichment needs; everything else from
		// the upstream payload is dropped here.
		fresh[ep.Episode] = models.EpisodeMeta{
			TMDBID:  ep.TMDBID,
			Name:    ep.Name,
			AirDate: ep.AirDate,
		}
	}

	entry := models.SeasonEntry{
		Episodes:    fresh,
		LastUpdated: c.now(),
		State:       models.SeasonStateComplete,
	}
	if err := c.store.SetDoc(key, entry); err != nil {
		return nil, fmt.Errorf("write season entry %s: %w", key, err)
	}

	metrics.CacheResults.WithLabelValues(metrics.CacheMissFetched).Inc()
	logging.Debug().Int("show", showID).Int("season", season).Int("episodes", len(fresh)).Msg("season cached")
	return &entry, nil
}

// writeError flips the entry to error state while merge-preserving the
// previously cached episodes map.
func (c *Cache) writeError(key string) error {
	return c.store.Update(func(tx *store.Txn) error {
		var entry models.SeasonEntry
		err := tx.GetDoc(key, &entry)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		entry.State = models.SeasonStateError
		entry.LastUpdated = c.now()
		return tx.SetDoc(key, entry)
	})
}
