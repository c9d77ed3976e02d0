// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import "time"

// SyncState is the lifecycle state of a user's sync run.
type SyncState string

const (
	SyncStateIdle       SyncState = "idle"
	SyncStateInProgress SyncState = "in_progress"
	SyncStateCompleted  SyncState = "completed"
	SyncStateFailed     SyncState = "failed"
)

// SyncStatus is the single live status document for one user's sync runs.
// It is overwritten at the start of each run and mutated exactly once more
// when the run finishes, so a concurrent status read observes either the
// fresh in_progress record or the final outcome, never a half-written one.
type SyncStatus struct {
	State        SyncState      `json:"state"`
	RunID        string         `json:"run_id,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
	ItemsSynced  map[string]int `json:"items_synced,omitempty"`
	// Errors holds one tagged message per failed collection, in the order
	// the collections were attempted.
	Errors []string `json:"errors,omitempty"`
}

// InProgress reports whether a run is currently recorded as active.
func (s *SyncStatus) InProgress() bool {
	return s.State == SyncStateInProgress
}
