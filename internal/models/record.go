// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import "time"

// EpisodeRecord is one per-user watched-episode document. Watched, Plays
// and WatchedAt are owned by the sync pipeline; TMDBID, Name and AirDate
// are only ever added by enrichment, never the other way around.
type EpisodeRecord struct {
	Watched   bool       `json:"watched"`
	Plays     int        `json:"plays,omitempty"`
	WatchedAt *Timestamp `json:"watched_at,omitempty"`

	TMDBID  int        `json:"tmdb_id,omitempty"`
	Name    string     `json:"name,omitempty"`
	AirDate *time.Time `json:"air_date,omitempty"`
}

// Enriched reports whether the metadata fields are already present.
// A nil AirDate does not count against enrichment: unaired episodes
// legitimately have none.
func (r *EpisodeRecord) Enriched() bool {
	return r.TMDBID != 0 && r.Name != ""
}

// MovieRecord is one per-user watched-movie document.
type MovieRecord struct {
	Title         string     `json:"title"`
	Year          int        `json:"year,omitempty"`
	TMDBID        int        `json:"tmdb_id"`
	Plays         int        `json:"plays"`
	LastWatchedAt *Timestamp `json:"last_watched_at,omitempty"`
}

// ShowRecord is one per-user watched-show summary document. Episode-level
// watch state lives in separate EpisodeRecord documents.
type ShowRecord struct {
	Title         string     `json:"title"`
	Year          int        `json:"year,omitempty"`
	TMDBID        int        `json:"tmdb_id"`
	Plays         int        `json:"plays"`
	LastWatchedAt *Timestamp `json:"last_watched_at,omitempty"`
}

// RatingRecord is one per-user rating document.
type RatingRecord struct {
	MediaType string     `json:"media_type"`
	Title     string     `json:"title"`
	TMDBID    int        `json:"tmdb_id"`
	Rating    int        `json:"rating"`
	RatedAt   *Timestamp `json:"rated_at,omitempty"`
}

// ListedRecord is one watchlist, favorites or list-item document.
type ListedRecord struct {
	MediaType string     `json:"media_type"`
	Title     string     `json:"title"`
	TMDBID    int        `json:"tmdb_id"`
	ListedAt  *Timestamp `json:"listed_at,omitempty"`
}

// ListRecord is one user-owned list summary document.
type ListRecord struct {
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ItemCount int        `json:"item_count"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}
