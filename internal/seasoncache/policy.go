// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package seasoncache

import (
	"time"

	"github.com/tomtom215/traktmirror/internal/models"
)

// Freshness policy. Metadata for seasons that are still airing (or have
// unaired episodes) churns, so they refresh weekly; archived seasons are
// effectively immutable and refresh monthly. A failed fetch is not
// retried inside the error backoff window.
const (
	ttlOngoing  = 7 * 24 * time.Hour
	ttlArchived = 30 * 24 * time.Hour

	// ongoingWindow is how recently the latest episode must have aired
	// for the season to still count as ongoing.
	ongoingWindow = 14 * 24 * time.Hour

	errorBackoff = 5 * time.Minute
)

// stale reports whether a complete entry is due for refresh.
func stale(entry *models.SeasonEntry, now time.Time) bool {
	return now.Sub(entry.LastUpdated) >= ttl(entry, now)
}

// ttl returns the entry's freshness duration.
func ttl(entry *models.SeasonEntry, now time.Time) time.Duration {
	if ongoing(entry, now) {
		return ttlOngoing
	}
	return ttlArchived
}

// ongoing reports whether the season's metadata is still expected to
// change. A season with no episodes at all is treated as ongoing: an
// empty payload says nothing about whether the season has finished.
func ongoing(entry *models.SeasonEntry, now time.Time) bool {
	if len(entry.Episodes) == 0 {
		return true
	}

	var latest time.Time
	for _, ep := range entry.Episodes {
		if ep.AirDate == nil {
			return true
		}
		if ep.AirDate.After(latest) {
			latest = *ep.AirDate
		}
	}
	return now.Sub(latest) <= ongoingWindow
}
