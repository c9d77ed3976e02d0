// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
	"github.com/tomtom215/traktmirror/internal/trakt"
)

type fakeRefresher struct {
	calls    int
	response *trakt.TokenResponse
	err      error
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refreshToken string) (*trakt.TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestProvider(t *testing.T, refresher Refresher) (*Provider, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewProvider(s, refresher), s
}

func TestValidReturnsFreshTokenWithoutRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	provider, _ := newTestProvider(t, refresher)

	tok := Token{AccessToken: "abc", RefreshToken: "r", ExpiresAt: time.Now().Add(48 * time.Hour)}
	if err := provider.Save("alice", tok); err != nil {
		t.Fatalf("save token: %v", err)
	}

	got, err := provider.Valid(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Valid: %v", err)
	}
	if got != "abc" {
		t.Errorf("token = %q, want stored access token", got)
	}
	if refresher.calls != 0 {
		t.Errorf("refresh calls = %d, want 0 for a fresh token", refresher.calls)
	}
}

func TestValidRefreshesTokenNearExpiry(t *testing.T) {
	createdAt := time.Now().Unix()
	refresher := &fakeRefresher{response: &trakt.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    7776000,
		CreatedAt:    createdAt,
	}}
	provider, s := newTestProvider(t, refresher)

	// 30 minutes to expiry is inside the 1 hour refresh window.
	tok := Token{AccessToken: "old", RefreshToken: "old-refresh", ExpiresAt: time.Now().Add(30 * time.Minute)}
	if err := provider.Save("alice", tok); err != nil {
		t.Fatalf("save token: %v", err)
	}

	got, err := provider.Valid(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Valid: %v", err)
	}
	if got != "new-access" {
		t.Errorf("token = %q, want refreshed access token", got)
	}
	if refresher.calls != 1 {
		t.Errorf("refresh calls = %d, want 1", refresher.calls)
	}

	// The refreshed pair must be persisted.
	var persisted Token
	if err := s.GetDoc(store.TokenKey("alice"), &persisted); err != nil {
		t.Fatalf("read persisted token: %v", err)
	}
	if persisted.AccessToken != "new-access" || persisted.RefreshToken != "new-refresh" {
		t.Errorf("persisted token = %+v, want refreshed pair", persisted)
	}
	wantExpiry := time.Unix(createdAt, 0).Add(7776000 * time.Second)
	if !persisted.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("persisted expiry = %v, want %v", persisted.ExpiresAt, wantExpiry)
	}
}

func TestValidRefreshFailureIsAuthError(t *testing.T) {
	refresher := &fakeRefresher{err: &models.UpstreamError{Service: "trakt", Status: 401, Body: "invalid_grant"}}
	provider, _ := newTestProvider(t, refresher)

	tok := Token{AccessToken: "old", RefreshToken: "revoked", ExpiresAt: time.Now().Add(5 * time.Minute)}
	if err := provider.Save("alice", tok); err != nil {
		t.Fatalf("save token: %v", err)
	}

	_, err := provider.Valid(context.Background(), "alice")
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if authErr.UserID != "alice" {
		t.Errorf("auth error user = %q, want alice", authErr.UserID)
	}
}

func TestValidMissingTokenIsAuthError(t *testing.T) {
	provider, _ := newTestProvider(t, &fakeRefresher{})

	_, err := provider.Valid(context.Background(), "nobody")
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError for missing token", err)
	}
}
