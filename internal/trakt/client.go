// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

/*
client.go - Trakt REST API Client

Implements the per-collection fetches the sync orchestrator pulls from:
watched movies, watched shows (with per-episode state), ratings,
watchlist, favorites and user-owned lists, plus OAuth token refresh.

API Reference: https://trakt.docs.apiary.io/
*/

package trakt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/traktmirror/internal/metrics"
	"github.com/tomtom215/traktmirror/internal/models"
)

// ClientInterface defines the Trakt operations the orchestrator consumes.
type ClientInterface interface {
	WatchedMovies(ctx context.Context, token string) ([]WatchedMovie, error)
	WatchedShows(ctx context.Context, token string) ([]WatchedShow, error)
	Ratings(ctx context.Context, token string) ([]Rating, error)
	Watchlist(ctx context.Context, token string) ([]ListedItem, error)
	Favorites(ctx context.Context, token string) ([]ListedItem, error)
	Lists(ctx context.Context, token string) ([]List, error)
	ListItems(ctx context.Context, token, listSlug string) ([]ListedItem, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// pageLimit is the page size requested from paginated endpoints.
const pageLimit = 100

// Client provides access to the Trakt REST API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// Config holds Trakt client configuration.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration

	// RateLimit is the sustained requests-per-second budget; Burst is the
	// short-term allowance. Trakt enforces its own limits server-side,
	// pacing here keeps a large first sync from tripping them.
	RateLimit float64
	Burst     int
}

// NewClient creates a new Trakt API client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.trakt.tv"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 3
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

// WatchedMovies retrieves the user's complete watched-movies history.
func (c *Client) WatchedMovies(ctx context.Context, token string) ([]WatchedMovie, error) {
	var movies []WatchedMovie
	if err := c.get(ctx, "/sync/watched/movies", token, &movies); err != nil {
		return nil, fmt.Errorf("trakt watched movies: %w", err)
	}
	return movies, nil
}

// WatchedShows retrieves the user's watched shows with per-episode state.
func (c *Client) WatchedShows(ctx context.Context, token string) ([]WatchedShow, error) {
	var shows []WatchedShow
	if err := c.get(ctx, "/sync/watched/shows", token, &shows); err != nil {
		return nil, fmt.Errorf("trakt watched shows: %w", err)
	}
	return shows, nil
}

// Ratings retrieves all of the user's ratings, walking pagination.
func (c *Client) Ratings(ctx context.Context, token string) ([]Rating, error) {
	items, err := getPaginated[Rating](ctx, c, "/sync/ratings", token)
	if err != nil {
		return nil, fmt.Errorf("trakt ratings: %w", err)
	}
	return items, nil
}

// Watchlist retrieves the user's watchlist, walking pagination.
func (c *Client) Watchlist(ctx context.Context, token string) ([]ListedItem, error) {
	items, err := getPaginated[ListedItem](ctx, c, "/sync/watchlist", token)
	if err != nil {
		return nil, fmt.Errorf("trakt watchlist: %w", err)
	}
	return items, nil
}

// Favorites retrieves the user's favorites, walking pagination.
func (c *Client) Favorites(ctx context.Context, token string) ([]ListedItem, error) {
	items, err := getPaginated[ListedItem](ctx, c, "/sync/favorites", token)
	if err != nil {
		return nil, fmt.Errorf("trakt favorites: %w", err)
	}
	return items, nil
}

// Lists retrieves the user's own lists.
func (c *Client) Lists(ctx context.Context, token string) ([]List, error) {
	var lists []List
	if err := c.get(ctx, "/users/me/lists", token, &lists); err != nil {
		return nil, fmt.Errorf("trakt lists: %w", err)
	}
	return lists, nil
}

// ListItems retrieves the items of one user-owned list.
func (c *Client) ListItems(ctx context.Context, token, listSlug string) ([]ListedItem, error) {
	items, err := getPaginated[ListedItem](ctx, c, "/users/me/lists/"+listSlug+"/items", token)
	if err != nil {
		return nil, fmt.Errorf("trakt list %s items: %w", listSlug, err)
	}
	return items, nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	payload := map[string]string{
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "refresh_token",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req, "oauth/token")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &tok, nil
}

// get performs one authenticated GET and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint, token string, out any) error {
	resp, err := c.authedGet(ctx, endpoint, token)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// getPaginated walks a paginated endpoint until the reported page count
// is exhausted, producing one flat slice. Pagination is driven by the
// X-Pagination-Page-Count response header.
func getPaginated[T any](ctx context.Context, c *Client, endpoint, token string) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s?page=%d&limit=%d", endpoint, page, pageLimit)
		resp, err := c.authedGet(ctx, url, token)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := upstreamError(resp)
			_ = resp.Body.Close()
			return nil, err
		}

		var items []T
		err = json.NewDecoder(resp.Body).Decode(&items)
		pageCount := resp.Header.Get("X-Pagination-Page-Count")
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", endpoint, page, err)
		}

		all = append(all, items...)

		total, convErr := strconv.Atoi(pageCount)
		if convErr != nil || page >= total || len(items) == 0 {
			break
		}
	}

	return all, nil
}

// authedGet issues one rate-limited GET with the Trakt API headers.
func (c *Client) authedGet(ctx context.Context, endpoint, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.clientID)

	return c.do(ctx, req, metricEndpoint(endpoint))
}

// do applies rate limiting, executes the request and records metrics.
func (c *Client) do(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("trakt", endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestErrors.WithLabelValues("trakt", endpoint).Inc()
		return nil, fmt.Errorf("trakt request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		metrics.UpstreamRequestErrors.WithLabelValues("trakt", endpoint).Inc()
	}
	return resp, nil
}

// upstreamError drains the body into a typed UpstreamError.
func upstreamError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		body = []byte("(failed to read body)")
	}
	return &models.UpstreamError{Service: "trakt", Status: resp.StatusCode, Body: string(body)}
}

// metricEndpoint strips query strings and slug segments so metric labels
// stay low-cardinality.
func metricEndpoint(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	if strings.HasPrefix(endpoint, "/users/me/lists/") {
		return "users/me/lists/items"
	}
	return strings.TrimPrefix(endpoint, "/")
}
