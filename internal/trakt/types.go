// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package trakt

// IDs is the identifier set Trakt attaches to every media object.
// TMDB is the canonical id for this system; records without one cannot
// be keyed and are dropped during transform.
type IDs struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
}

// Movie is the movie object embedded in Trakt responses.
type Movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// Show is the show object embedded in Trakt responses.
type Show struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   IDs    `json:"ids"`
}

// WatchedMovie is one entry of GET /sync/watched/movies.
type WatchedMovie struct {
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
	Movie         Movie  `json:"movie"`
}

// WatchedEpisode is one episode inside a watched show's season.
type WatchedEpisode struct {
	Number        int    `json:"number"`
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
}

// WatchedSeason is one season inside a watched show.
type WatchedSeason struct {
	Number   int              `json:"number"`
	Episodes []WatchedEpisode `json:"episodes"`
}

// WatchedShow is one entry of GET /sync/watched/shows.
type WatchedShow struct {
	Plays         int             `json:"plays"`
	LastWatchedAt string          `json:"last_watched_at"`
	Show          Show            `json:"show"`
	Seasons       []WatchedSeason `json:"seasons"`
}

// Rating is one entry of GET /sync/ratings.
type Rating struct {
	RatedAt string `json:"rated_at"`
	Rating  int    `json:"rating"`
	Type    string `json:"type"` // "movie", "show", "season", "episode"
	Movie   *Movie `json:"movie,omitempty"`
	Show    *Show  `json:"show,omitempty"`
}

// ListedItem is one entry of GET /sync/watchlist, /sync/favorites or a
// user list's items; the shapes are identical.
type ListedItem struct {
	ListedAt string `json:"listed_at"`
	Type     string `json:"type"`
	Movie    *Movie `json:"movie,omitempty"`
	Show     *Show  `json:"show,omitempty"`
}

// List is one entry of GET /users/me/lists.
type List struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
	UpdatedAt string `json:"updated_at"`
	IDs       struct {
		Trakt int    `json:"trakt"`
		Slug  string `json:"slug"`
	} `json:"ids"`
}

// TokenResponse is the Trakt OAuth token endpoint payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}
