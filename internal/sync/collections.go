// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

/*
collections.go - Per-Collection Pull and Transform

Each sync* method pulls one Trakt collection, transforms its entries
into store documents and merge-upserts them under the user's key
prefix. Transform policy: entries without a TMDB id cannot be keyed
and are dropped silently. Merge-upserts keep fields a pull does not
carry (enrichment metadata in particular) intact across runs.
*/

package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traktmirror/internal/enrich"
	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
	"github.com/tomtom215/traktmirror/internal/trakt"
)

// Collection names double as ItemsSynced keys and store key segments.
const (
	colMovies    = "movies"
	colShows     = "shows"
	colEpisodes  = "episodes"
	colRatings   = "ratings"
	colWatchlist = "watchlist"
	colFavorites = "favorites"
	colLists     = "lists"
	colListItems = "listitems"
)

// syncWatchedMovies mirrors the watched-movies history.
func (o *Orchestrator) syncWatchedMovies(ctx context.Context, userID, token string) (int, error) {
	watched, err := o.source.WatchedMovies(ctx, token)
	if err != nil {
		return 0, err
	}

	docs := make(map[string]any, len(watched))
	for _, w := range watched {
		if w.Movie.IDs.TMDB == 0 {
			logging.Debug().Str("title", w.Movie.Title).Msg("watched movie has no tmdb id, dropped")
			continue
		}
		key := store.CollectionKey(userID, colMovies, strconv.Itoa(w.Movie.IDs.TMDB))
		docs[key] = &models.MovieRecord{
			Title:         w.Movie.Title,
			Year:          w.Movie.Year,
			TMDBID:        w.Movie.IDs.TMDB,
			Plays:         w.Plays,
			LastWatchedAt: parseTime(w.LastWatchedAt),
		}
	}

	if err := o.store.MergeUpsertBatch(docs); err != nil {
		return 0, fmt.Errorf("persist watched movies: %w", err)
	}
	return len(docs), nil
}

// syncWatchedEpisodes mirrors watched shows as a per-show summary document
// plus one document per watched episode, then runs enrichment over every
// show's episode set. The count reflects episode documents only.
func (o *Orchestrator) syncWatchedEpisodes(ctx context.Context, userID, token string) (int, error) {
	watched, err := o.source.WatchedShows(ctx, token)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, w := range watched {
		showID := w.Show.IDs.TMDB
		if showID == 0 {
			logging.Debug().Str("title", w.Show.Title).Msg("watched show has no tmdb id, dropped")
			continue
		}

		summaryKey := store.CollectionKey(userID, colShows, strconv.Itoa(showID))
		summary := &models.ShowRecord{
			Title:         w.Show.Title,
			Year:          w.Show.Year,
			TMDBID:        showID,
			Plays:         w.Plays,
			LastWatchedAt: parseTime(w.LastWatchedAt),
		}
		if err := o.store.MergeUpsert(summaryKey, summary); err != nil {
			return total, fmt.Errorf("persist show %d summary: %w", showID, err)
		}

		count, err := o.syncShowEpisodes(ctx, userID, showID, w.Seasons)
		if err != nil {
			return total, fmt.Errorf("show %d episodes: %w", showID, err)
		}
		total += count
	}
	return total, nil
}

// syncShowEpisodes builds the episode record set for one show, overlays
// fresh watch state onto any previously stored documents, enriches the
// set and persists it in one batch.
func (o *Orchestrator) syncShowEpisodes(ctx context.Context, userID string, showID int, seasons []trakt.WatchedSeason) (int, error) {
	records := make(map[string]models.EpisodeRecord)
	for _, season := range seasons {
		for _, ep := range season.Episodes {
			records[enrich.Key(season.Number, ep.Number)] = models.EpisodeRecord{
				Watched:   true,
				Plays:     ep.Plays,
				WatchedAt: parseTime(ep.LastWatchedAt),
			}
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	// Previously stored documents already carry enrichment metadata;
	// reusing it here means unchanged seasons cost no cache lookup work
	// beyond the lookup the enricher performs anyway.
	prefix := store.CollectionPrefix(userID, colEpisodes) + strconv.Itoa(showID) + ":"
	err := o.store.ListDocs(prefix, func(key string, value []byte) error {
		composite := key[len(prefix):]
		fresh, ok := records[composite]
		if !ok {
			return nil
		}
		var existing models.EpisodeRecord
		if err := json.Unmarshal(value, &existing); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("unreadable episode document, replacing")
			return nil
		}
		existing.Watched = fresh.Watched
		existing.Plays = fresh.Plays
		existing.WatchedAt = fresh.WatchedAt
		records[composite] = existing
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load existing episodes: %w", err)
	}

	for composite, record := range o.enricher.Enrich(ctx, showID, records) {
		records[composite] = record
	}

	docs := make(map[string]any, len(records))
	for composite, record := range records {
		r := record
		docs[prefix+composite] = &r
	}
	if err := o.store.MergeUpsertBatch(docs); err != nil {
		return 0, fmt.Errorf("persist episodes: %w", err)
	}
	return len(records), nil
}

// syncRatings mirrors the user's ratings across media types.
func (o *Orchestrator) syncRatings(ctx context.Context, userID, token string) (int, error) {
	ratings, err := o.source.Ratings(ctx, token)
	if err != nil {
		return 0, err
	}

	docs := make(map[string]any, len(ratings))
	for _, r := range ratings {
		title, tmdbID := mediaIdentity(r.Movie, r.Show)
		if tmdbID == 0 {
			continue
		}
		key := store.CollectionKey(userID, colRatings, r.Type+":"+strconv.Itoa(tmdbID))
		docs[key] = &models.RatingRecord{
			MediaType: r.Type,
			Title:     title,
			TMDBID:    tmdbID,
			Rating:    r.Rating,
			RatedAt:   parseTime(r.RatedAt),
		}
	}

	if err := o.store.MergeUpsertBatch(docs); err != nil {
		return 0, fmt.Errorf("persist ratings: %w", err)
	}
	return len(docs), nil
}

// syncWatchlist mirrors the user's watchlist.
func (o *Orchestrator) syncWatchlist(ctx context.Context, userID, token string) (int, error) {
	items, err := o.source.Watchlist(ctx, token)
	if err != nil {
		return 0, err
	}
	return o.persistListedItems(userID, colWatchlist, "", items)
}

// syncFavorites mirrors the user's favorites.
func (o *Orchestrator) syncFavorites(ctx context.Context, userID, token string) (int, error) {
	items, err := o.source.Favorites(ctx, token)
	if err != nil {
		return 0, err
	}
	return o.persistListedItems(userID, colFavorites, "", items)
}

// syncLists mirrors the user's own lists and each list's items. A failure
// fetching one list's items fails the whole collection; list summaries
// written before the failure remain, the next run converges them.
func (o *Orchestrator) syncLists(ctx context.Context, userID, token string) (int, error) {
	lists, err := o.source.Lists(ctx, token)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, l := range lists {
		slug := l.IDs.Slug
		if slug == "" {
			slug = strconv.Itoa(l.IDs.Trakt)
		}

		key := store.CollectionKey(userID, colLists, slug)
		doc := &models.ListRecord{
			Name:      l.Name,
			Slug:      slug,
			ItemCount: l.ItemCount,
			UpdatedAt: parseTime(l.UpdatedAt),
		}
		if err := o.store.MergeUpsert(key, doc); err != nil {
			return total, fmt.Errorf("persist list %s: %w", slug, err)
		}
		total++

		items, err := o.source.ListItems(ctx, token, slug)
		if err != nil {
			return total, err
		}
		count, err := o.persistListedItems(userID, colListItems, slug, items)
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// persistListedItems writes watchlist-shaped items under one collection.
// A non-empty scope nests the items under that list's slug.
func (o *Orchestrator) persistListedItems(userID, collection, scope string, items []trakt.ListedItem) (int, error) {
	docs := make(map[string]any, len(items))
	for _, item := range items {
		title, tmdbID := mediaIdentity(item.Movie, item.Show)
		if tmdbID == 0 {
			continue
		}
		itemKey := item.Type + ":" + strconv.Itoa(tmdbID)
		if scope != "" {
			itemKey = scope + ":" + itemKey
		}
		docs[store.CollectionKey(userID, collection, itemKey)] = &models.ListedRecord{
			MediaType: item.Type,
			Title:     title,
			TMDBID:    tmdbID,
			ListedAt:  parseTime(item.ListedAt),
		}
	}

	if err := o.store.MergeUpsertBatch(docs); err != nil {
		return 0, fmt.Errorf("persist %s: %w", collection, err)
	}
	return len(docs), nil
}

// mediaIdentity extracts the title and TMDB id from whichever media
// object a polymorphic entry carries.
func mediaIdentity(movie *trakt.Movie, show *trakt.Show) (string, int) {
	switch {
	case movie != nil:
		return movie.Title, movie.IDs.TMDB
	case show != nil:
		return show.Title, show.IDs.TMDB
	default:
		return "", 0
	}
}

// parseTime converts a Trakt RFC 3339 timestamp string. Empty and
// malformed values map to nil rather than a zero time.
func parseTime(s string) *models.Timestamp {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	ts := models.NewTimestamp(t)
	return &ts
}
