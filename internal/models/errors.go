// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import "fmt"

// UpstreamError is a non-2xx response from Trakt or TMDB. It is isolated
// to the collection or cache fetch that triggered it and never aborts
// sibling work.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// AuthError means the user's credentials are invalid and could not be
// refreshed. It is fatal for the whole run.
type AuthError struct {
	UserID string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for user %s: %v", e.UserID, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
