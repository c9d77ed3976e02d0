// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import "time"

// SeasonState is the population state of a cached season entry.
type SeasonState string

const (
	SeasonStatePopulating SeasonState = "populating"
	SeasonStateComplete   SeasonState = "complete"
	SeasonStateError      SeasonState = "error"
)

// EpisodeMeta is the descriptive metadata retained for one episode of a
// cached season. All other upstream fields are discarded at fetch time.
type EpisodeMeta struct {
	TMDBID  int        `json:"tmdb_id"`
	Name    string     `json:"name"`
	AirDate *time.Time `json:"air_date,omitempty"`
}

// SeasonEntry is one globally shared cache document, keyed by
// (show TMDB id, season number). Invariant: at most one execution holds
// SeasonStatePopulating for a given key at a time.
type SeasonEntry struct {
	Episodes    map[int]EpisodeMeta `json:"episodes,omitempty"`
	LastUpdated time.Time           `json:"last_updated"`
	State       SeasonState         `json:"state"`
}

// SeasonEpisode is one episode as returned by the catalog service,
// before it is folded into a SeasonEntry.
type SeasonEpisode struct {
	Episode int
	TMDBID  int
	Name    string
	AirDate *time.Time
}
