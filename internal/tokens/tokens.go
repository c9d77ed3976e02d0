// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package tokens is the credential provider: it persists each user's
// Trakt OAuth token pair and transparently refreshes a token that is
// about to expire. Token acquisition (the initial device/PIN exchange)
// happens outside this service; a token document simply appears in the
// store.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
	"github.com/tomtom215/traktmirror/internal/trakt"
)

// refreshWindow is how close to expiry a token may get before Valid
// refreshes it rather than handing it out.
const refreshWindow = time.Hour

// Token is one user's persisted OAuth token document.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*trakt.TokenResponse, error)
}

// Provider hands out valid bearer tokens, refreshing and persisting as
// needed.
type Provider struct {
	store     *store.Store
	refresher Refresher

	now func() time.Time
}

// NewProvider creates a token provider over the shared store.
func NewProvider(s *store.Store, refresher Refresher) *Provider {
	return &Provider{store: s, refresher: refresher, now: time.Now}
}

// Valid returns a bearer token for userID that is good for at least the
// refresh window. Every failure here, including a missing token document,
// surfaces as an AuthError, which is fatal for the caller's whole run.
func (p *Provider) Valid(ctx context.Context, userID string) (string, error) {
	var tok Token
	err := p.store.GetDoc(store.TokenKey(userID), &tok)
	if errors.Is(err, store.ErrNotFound) {
		return "", &models.AuthError{UserID: userID, Err: errors.New("no token on record")}
	}
	if err != nil {
		return "", &models.AuthError{UserID: userID, Err: fmt.Errorf("load token: %w", err)}
	}

	if p.now().Add(refreshWindow).Before(tok.ExpiresAt) {
		return tok.AccessToken, nil
	}

	logging.Info().Str("user", userID).Time("expires_at", tok.ExpiresAt).Msg("refreshing trakt token")
	refreshed, err := p.refresher.RefreshToken(ctx, tok.RefreshToken)
	if err != nil {
		return "", &models.AuthError{UserID: userID, Err: fmt.Errorf("refresh token: %w", err)}
	}

	tok = Token{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		ExpiresAt:    time.Unix(refreshed.CreatedAt, 0).Add(time.Duration(refreshed.ExpiresIn) * time.Second),
	}
	if err := p.store.SetDoc(store.TokenKey(userID), tok); err != nil {
		return "", &models.AuthError{UserID: userID, Err: fmt.Errorf("persist refreshed token: %w", err)}
	}

	return tok.AccessToken, nil
}

// Save persists a token document for userID. Used by operational tooling
// to seed credentials.
func (p *Provider) Save(userID string, tok Token) error {
	if err := p.store.SetDoc(store.TokenKey(userID), tok); err != nil {
		return fmt.Errorf("save token for %s: %w", userID, err)
	}
	return nil
}
