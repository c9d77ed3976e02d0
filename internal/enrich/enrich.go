// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package enrich merges season metadata from the shared cache into
// per-user episode records. Enrichment is strictly additive: it never
// touches the watched flag, play count or watched timestamp, and a
// cache Skip simply defers the bucket to a later pass.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/seasoncache"
)

// MetadataSource is the season cache surface the engine consumes.
type MetadataSource interface {
	GetOrFetch(ctx context.Context, showID, season int) (*models.SeasonEntry, error)
}

// Engine enriches episode records for one show at a time.
type Engine struct {
	cache MetadataSource
}

// New creates an enrichment engine over the given metadata source.
func New(cache MetadataSource) *Engine {
	return &Engine{cache: cache}
}

// Enrich consults the season cache for every season bucket in records and
// returns only the records that changed and need persisting. Keys encode
// "{season}_{episode}". Records whose season was skipped by the cache, and
// records that are already fully enriched with a canonical timestamp, are
// not returned.
func (e *Engine) Enrich(ctx context.Context, showID int, records map[string]models.EpisodeRecord) map[string]models.EpisodeRecord {
	changed := make(map[string]models.EpisodeRecord)

	for _, season := range seasonBuckets(records) {
		entry, err := e.cache.GetOrFetch(ctx, showID, season.number)
		if errors.Is(err, seasoncache.ErrSkip) {
			continue
		}
		if err != nil {
			logging.Warn().Err(err).Int("show", showID).Int("season", season.number).Msg("season lookup failed, bucket deferred")
			continue
		}

		for _, key := range season.keys {
			record := records[key]
			_, episode, perr := ParseKey(key)
			if perr != nil {
				continue
			}
			if merge(&record, entry.Episodes[episode]) {
				changed[key] = record
			}
		}
	}

	return changed
}

// merge copies metadata fields into the record and reports whether the
// stored document needs rewriting. Watched state is caller-owned and is
// never modified here; the one non-metadata rewrite allowed is
// re-encoding a watched timestamp that was read in a legacy form.
func merge(record *models.EpisodeRecord, meta models.EpisodeMeta) bool {
	needsWrite := false

	if meta.TMDBID != 0 && record.TMDBID != meta.TMDBID {
		record.TMDBID = meta.TMDBID
		needsWrite = true
	}
	if meta.Name != "" && record.Name != meta.Name {
		record.Name = meta.Name
		needsWrite = true
	}
	if meta.AirDate != nil && (record.AirDate == nil || !record.AirDate.Equal(*meta.AirDate)) {
		record.AirDate = meta.AirDate
		needsWrite = true
	}

	if record.WatchedAt != nil && !record.WatchedAt.Canonical() {
		normalized := models.NewTimestamp(record.WatchedAt.Time)
		record.WatchedAt = &normalized
		needsWrite = true
	}

	return needsWrite
}

// seasonBucket groups the composite keys of one season.
type seasonBucket struct {
	number int
	keys   []string
}

// seasonBuckets parses and groups composite keys by season, in ascending
// season order so cache calls happen deterministically.
func seasonBuckets(records map[string]models.EpisodeRecord) []seasonBucket {
	grouped := make(map[int][]string)
	for key := range records {
		season, _, err := ParseKey(key)
		if err != nil {
			logging.Debug().Str("key", key).Msg("skipping malformed episode key")
			continue
		}
		grouped[season] = append(grouped[season], key)
	}

	buckets := make([]seasonBucket, 0, len(grouped))
	for season, keys := range grouped {
		sort.Strings(keys)
		buckets = append(buckets, seasonBucket{number: season, keys: keys})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].number < buckets[j].number })
	return buckets
}

// ParseKey splits a "{season}_{episode}" composite key.
func ParseKey(key string) (season, episode int, err error) {
	seasonPart, episodePart, found := strings.Cut(key, "_")
	if !found {
		return 0, 0, fmt.Errorf("composite key %q has no separator", key)
	}
	season, err = strconv.Atoi(seasonPart)
	if err != nil {
		return 0, 0, fmt.Errorf("composite key %q: bad season: %w", key, err)
	}
	episode, err = strconv.Atoi(episodePart)
	if err != nil {
		return 0, 0, fmt.Errorf("composite key %q: bad episode: %w", key, err)
	}
	return season, episode, nil
}

// Key builds the "{season}_{episode}" composite key.
func Key(season, episode int) string {
	return strconv.Itoa(season) + "_" + strconv.Itoa(episode)
}
