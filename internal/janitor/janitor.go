// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package janitor periodically resets sync runs abandoned in the
// in_progress state. A process crash between a run's start and finish
// leaves the status stuck, which would block triggers forever; the
// janitor flips runs older than the stuck timeout to failed with a
// tagged error so the next trigger proceeds.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/metrics"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
)

const (
	// DefaultInterval is how often the sweep runs.
	DefaultInterval = 10 * time.Minute

	// DefaultStuckRunTimeout is how old an in_progress run must be
	// before it counts as abandoned. A full first sync of a large
	// history stays well under this.
	DefaultStuckRunTimeout = 2 * time.Hour
)

// Janitor sweeps stuck sync runs. It implements suture.Service.
type Janitor struct {
	store        *store.Store
	interval     time.Duration
	stuckTimeout time.Duration

	now func() time.Time
}

// New creates a Janitor. Non-positive durations fall back to defaults.
func New(s *store.Store, interval, stuckTimeout time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if stuckTimeout <= 0 {
		stuckTimeout = DefaultStuckRunTimeout
	}
	return &Janitor{
		store:        s,
		interval:     interval,
		stuckTimeout: stuckTimeout,
		now:          time.Now,
	}
}

// Serve runs the sweep loop until the context is canceled. One sweep
// happens immediately on start so a restart clears its own crash debris
// without waiting a full interval.
func (j *Janitor) Serve(ctx context.Context) error {
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (j *Janitor) String() string {
	return "sync-janitor"
}

// Sweep scans every status document and resets the stuck ones. It
// returns how many runs were reset.
func (j *Janitor) Sweep() int {
	cutoff := j.now().Add(-j.stuckTimeout)

	var stuck []string
	err := j.store.ListDocs("user:", func(key string, value []byte) error {
		userID, ok := store.IsSyncStatusKey(key)
		if !ok {
			return nil
		}
		var status models.SyncStatus
		if err := json.Unmarshal(value, &status); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("unreadable sync status document")
			return nil
		}
		if status.InProgress() && status.StartedAt.Before(cutoff) {
			stuck = append(stuck, userID)
		}
		return nil
	})
	if err != nil {
		logging.Error().Err(err).Msg("janitor sweep scan failed")
		return 0
	}

	reset := 0
	for _, userID := range stuck {
		if j.resetRun(userID, cutoff) {
			reset++
		}
	}
	if reset > 0 {
		logging.Info().Int("runs", reset).Msg("janitor reset stuck sync runs")
	}
	return reset
}

// resetRun re-checks the status inside a transaction before flipping it,
// so a run that legitimately finished between scan and write is left
// alone.
func (j *Janitor) resetRun(userID string, cutoff time.Time) bool {
	key := store.SyncStatusKey(userID)
	err := j.store.Update(func(tx *store.Txn) error {
		var status models.SyncStatus
		if err := tx.GetDoc(key, &status); err != nil {
			return err
		}
		if !status.InProgress() || !status.StartedAt.Before(cutoff) {
			return store.ErrNotFound
		}

		status.State = models.SyncStateFailed
		status.Errors = append(status.Errors,
			fmt.Sprintf("janitor: run %s abandoned in_progress since %s",
				status.RunID, status.StartedAt.UTC().Format(time.RFC3339)))
		status.LastSyncedAt = j.now()
		return tx.SetDoc(key, &status)
	})
	if err != nil {
		return false
	}

	metrics.SyncStaleRunsReset.Inc()
	logging.Warn().Str("user", userID).Msg("stuck sync run reset to failed")
	return true
}
