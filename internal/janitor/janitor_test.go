// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package janitor

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
)

func newTestJanitor(t *testing.T) (*Janitor, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s, DefaultInterval, DefaultStuckRunTimeout), s
}

func seedStatus(t *testing.T, s *store.Store, userID string, status models.SyncStatus) {
	t.Helper()
	if err := s.SetDoc(store.SyncStatusKey(userID), &status); err != nil {
		t.Fatalf("seed status for %s: %v", userID, err)
	}
}

func TestSweepResetsStuckRuns(t *testing.T) {
	j, s := newTestJanitor(t)
	now := time.Now()
	j.now = func() time.Time { return now }

	seedStatus(t, s, "stuck", models.SyncStatus{
		State:     models.SyncStateInProgress,
		RunID:     "r1",
		StartedAt: now.Add(-3 * time.Hour),
	})
	seedStatus(t, s, "active", models.SyncStatus{
		State:     models.SyncStateInProgress,
		RunID:     "r2",
		StartedAt: now.Add(-10 * time.Minute),
	})
	seedStatus(t, s, "done", models.SyncStatus{
		State:     models.SyncStateCompleted,
		RunID:     "r3",
		StartedAt: now.Add(-5 * time.Hour),
	})

	if reset := j.Sweep(); reset != 1 {
		t.Fatalf("Sweep() = %d, want 1", reset)
	}

	var stuck models.SyncStatus
	if err := s.GetDoc(store.SyncStatusKey("stuck"), &stuck); err != nil {
		t.Fatalf("load stuck status: %v", err)
	}
	if stuck.State != models.SyncStateFailed {
		t.Errorf("stuck state = %s, want failed", stuck.State)
	}
	if len(stuck.Errors) != 1 || !strings.HasPrefix(stuck.Errors[0], "janitor: ") {
		t.Errorf("errors = %v, want one janitor-tagged error", stuck.Errors)
	}
	if !strings.Contains(stuck.Errors[0], "r1") {
		t.Errorf("error does not name the abandoned run: %v", stuck.Errors)
	}

	var active models.SyncStatus
	if err := s.GetDoc(store.SyncStatusKey("active"), &active); err != nil {
		t.Fatalf("load active status: %v", err)
	}
	if active.State != models.SyncStateInProgress {
		t.Errorf("recent run was reset: state = %s", active.State)
	}

	var done models.SyncStatus
	if err := s.GetDoc(store.SyncStatusKey("done"), &done); err != nil {
		t.Fatalf("load done status: %v", err)
	}
	if done.State != models.SyncStateCompleted {
		t.Errorf("completed run was touched: state = %s", done.State)
	}
}

func TestSweepIgnoresNonStatusDocuments(t *testing.T) {
	j, s := newTestJanitor(t)

	// A collection item whose value is not a status document must not
	// trip the sweep.
	err := s.SetDoc(store.CollectionKey("alice", "movies", "949"), &models.MovieRecord{Title: "Heat", TMDBID: 949})
	if err != nil {
		t.Fatalf("seed movie: %v", err)
	}

	if reset := j.Sweep(); reset != 0 {
		t.Fatalf("Sweep() = %d, want 0", reset)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	j, s := newTestJanitor(t)
	now := time.Now()
	j.now = func() time.Time { return now }

	seedStatus(t, s, "stuck", models.SyncStatus{
		State:     models.SyncStateInProgress,
		RunID:     "r1",
		StartedAt: now.Add(-3 * time.Hour),
	})

	if reset := j.Sweep(); reset != 1 {
		t.Fatalf("first Sweep() = %d, want 1", reset)
	}
	if reset := j.Sweep(); reset != 0 {
		t.Fatalf("second Sweep() = %d, want 0", reset)
	}

	var status models.SyncStatus
	if err := s.GetDoc(store.SyncStatusKey("stuck"), &status); err != nil {
		t.Fatalf("load status: %v", err)
	}
	if len(status.Errors) != 1 {
		t.Errorf("errors accumulated across sweeps: %v", status.Errors)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s, err := store.Open(store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	j := New(s, 0, 0)
	if j.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", j.interval, DefaultInterval)
	}
	if j.stuckTimeout != DefaultStuckRunTimeout {
		t.Errorf("stuckTimeout = %v, want %v", j.stuckTimeout, DefaultStuckRunTimeout)
	}
}
