// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package store

import (
	"fmt"
	"strings"
)

// Key prefixes. Per-user documents live under user:{id}:..., the season
// cache is a single global keyspace shared by every user, and tokens sit
// in their own prefix so a user purge can skip credentials.
const (
	userKeyPrefix        = "user:"
	seasonCacheKeyPrefix = "seasoncache:"
	tokenKeyPrefix       = "token:"

	syncStatusSuffix = ":syncstatus"
)

// SyncStatusKey is the key of a user's single live SyncStatus document.
func SyncStatusKey(userID string) string {
	return userKeyPrefix + userID + syncStatusSuffix
}

// UserPrefix is the prefix under which all of a user's documents live.
func UserPrefix(userID string) string {
	return userKeyPrefix + userID + ":"
}

// CollectionKey addresses one item document inside a per-user collection.
func CollectionKey(userID, collection, itemKey string) string {
	return userKeyPrefix + userID + ":" + collection + ":" + itemKey
}

// CollectionPrefix is the prefix of every item in a per-user collection.
func CollectionPrefix(userID, collection string) string {
	return userKeyPrefix + userID + ":" + collection + ":"
}

// SeasonCacheKey addresses the globally shared cache entry for one
// (show, season) pair.
func SeasonCacheKey(showID, season int) string {
	return fmt.Sprintf("%s%d:%d", seasonCacheKeyPrefix, showID, season)
}

// TokenKey addresses a user's persisted OAuth token document.
func TokenKey(userID string) string {
	return tokenKeyPrefix + userID
}

// IsSyncStatusKey reports whether key addresses a SyncStatus document and,
// if so, extracts the user id.
func IsSyncStatusKey(key string) (userID string, ok bool) {
	if len(key) <= len(userKeyPrefix)+len(syncStatusSuffix) {
		return "", false
	}
	if key[:len(userKeyPrefix)] != userKeyPrefix {
		return "", false
	}
	if key[len(key)-len(syncStatusSuffix):] != syncStatusSuffix {
		return "", false
	}
	userID = key[len(userKeyPrefix) : len(key)-len(syncStatusSuffix)]
	if strings.Contains(userID, ":") {
		// Collection item keys can end in ":syncstatus" only by collision;
		// real status keys have exactly user:{id}:syncstatus shape.
		return "", false
	}
	return userID, true
}
