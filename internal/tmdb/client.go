// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

/*
client.go - TMDB REST API Client

Fetches one show season's episode list for the season metadata cache.
Only the fields the cache retains are decoded; everything else TMDB
returns is ignored.

API Reference: https://developer.themoviedb.org/reference/tv-season-details
*/

package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traktmirror/internal/metrics"
	"github.com/tomtom215/traktmirror/internal/models"
)

// ClientInterface defines the TMDB operations the season cache consumes.
// Both Client and CircuitBreakerClient implement this interface.
type ClientInterface interface {
	SeasonEpisodes(ctx context.Context, showID, season int) ([]models.SeasonEpisode, error)
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// airDateLayout is TMDB's date format.
const airDateLayout = "2006-01-02"

// Client provides access to the TMDB REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds TMDB client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new TMDB API client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// seasonResponse is the subset of GET /tv/{id}/season/{n} we keep.
type seasonResponse struct {
	Episodes []struct {
		EpisodeNumber int    `json:"episode_number"`
		ID            int    `json:"id"`
		Name          string `json:"name"`
		AirDate       string `json:"air_date"`
	} `json:"episodes"`
}

// SeasonEpisodes fetches one season's episodes for a show.
func (c *Client) SeasonEpisodes(ctx context.Context, showID, season int) ([]models.SeasonEpisode, error) {
	url := fmt.Sprintf("%s/tv/%d/season/%d?api_key=%s", c.baseURL, showID, season, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build season request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues("tmdb", "tv/season").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestErrors.WithLabelValues("tmdb", "tv/season").Inc()
		return nil, fmt.Errorf("tmdb season request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestErrors.WithLabelValues("tmdb", "tv/season").Inc()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			body = []byte("(failed to read body)")
		}
		return nil, &models.UpstreamError{Service: "tmdb", Status: resp.StatusCode, Body: string(body)}
	}

	var payload seasonResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb season: %w", err)
	}

	episodes := make([]models.SeasonEpisode, 0, len(payload.Episodes))
	for _, ep := range payload.Episodes {
		episode := models.SeasonEpisode{
			Episode: ep.EpisodeNumber,
			TMDBID:  ep.ID,
			Name:    ep.Name,
		}
		if ep.AirDate != "" {
			if aired, err := time.Parse(airDateLayout, ep.AirDate); err == nil {
				episode.AirDate = &aired
			}
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}
