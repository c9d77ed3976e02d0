// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/seasoncache"
)

// fakeSource serves canned season entries and records calls per season.
type fakeSource struct {
	entries map[int]*models.SeasonEntry
	skip    bool
	calls   map[int]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{entries: make(map[int]*models.SeasonEntry), calls: make(map[int]int)}
}

func (f *fakeSource) GetOrFetch(ctx context.Context, showID, season int) (*models.SeasonEntry, error) {
	f.calls[season]++
	if f.skip {
		return nil, seasoncache.ErrSkip
	}
	entry, ok := f.entries[season]
	if !ok {
		return nil, seasoncache.ErrSkip
	}
	return entry, nil
}

func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// TestEnrichMergesMetadataWithoutTouchingWatchedState covers the show-100
// scenario: two season-1 records, one cache lookup, metadata gained,
// watched flags untouched.
func TestEnrichMergesMetadataWithoutTouchingWatchedState(t *testing.T) {
	source := newFakeSource()
	source.entries[1] = &models.SeasonEntry{
		State: models.SeasonStateComplete,
		Episodes: map[int]models.EpisodeMeta{
			1: {TMDBID: 555, Name: "Pilot", AirDate: datePtr("2020-01-01")},
			2: {TMDBID: 556, Name: "Second", AirDate: datePtr("2020-01-08")},
		},
	}
	engine := New(source)

	watchedAt := models.NewTimestamp(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC))
	records := map[string]models.EpisodeRecord{
		"1_1": {Watched: true, WatchedAt: &watchedAt},
		"1_2": {Watched: false},
	}

	changed := engine.Enrich(context.Background(), 100, records)

	if source.calls[1] != 1 {
		t.Errorf("season 1 lookups = %d, want exactly 1 for the whole bucket", source.calls[1])
	}
	if len(changed) != 2 {
		t.Fatalf("changed records = %d, want 2", len(changed))
	}

	first := changed["1_1"]
	if first.TMDBID != 555 || first.Name != "Pilot" || first.AirDate == nil || !first.AirDate.Equal(*datePtr("2020-01-01")) {
		t.Errorf("1_1 metadata = %+v, want id 555 / Pilot / 2020-01-01", first)
	}
	if !first.Watched {
		t.Error("1_1 watched flag was altered by enrichment")
	}
	if first.WatchedAt == nil || !first.WatchedAt.Time.Equal(watchedAt.Time) {
		t.Error("1_1 watched timestamp was altered by enrichment")
	}

	second := changed["1_2"]
	if second.TMDBID != 556 || second.Name != "Second" {
		t.Errorf("1_2 metadata = %+v, want id 556 / Second", second)
	}
	if second.Watched {
		t.Error("1_2 watched flag was altered by enrichment")
	}
}

func TestEnrichSkipLeavesBucketUnchanged(t *testing.T) {
	source := newFakeSource()
	source.skip = true
	engine := New(source)

	records := map[string]models.EpisodeRecord{
		"1_1": {Watched: true},
		"2_4": {Watched: true},
	}
	changed := engine.Enrich(context.Background(), 100, records)

	if len(changed) != 0 {
		t.Errorf("changed records = %d, want 0 when every season skips", len(changed))
	}
	if source.calls[1] != 1 || source.calls[2] != 1 {
		t.Errorf("calls = %v, want one lookup per season bucket", source.calls)
	}
}

func TestEnrichBucketsBySeason(t *testing.T) {
	source := newFakeSource()
	source.entries[1] = &models.SeasonEntry{Episodes: map[int]models.EpisodeMeta{1: {TMDBID: 10, Name: "a"}}}
	source.entries[3] = &models.SeasonEntry{Episodes: map[int]models.EpisodeMeta{2: {TMDBID: 30, Name: "c"}}}
	engine := New(source)

	records := map[string]models.EpisodeRecord{
		"1_1": {}, "1_2": {}, "3_2": {},
	}
	engine.Enrich(context.Background(), 7, records)

	if source.calls[1] != 1 || source.calls[3] != 1 {
		t.Errorf("calls = %v, want exactly one per season regardless of bucket size", source.calls)
	}
}

func TestEnrichFullyEnrichedRecordUntouched(t *testing.T) {
	source := newFakeSource()
	source.entries[1] = &models.SeasonEntry{
		Episodes: map[int]models.EpisodeMeta{1: {TMDBID: 555, Name: "Pilot", AirDate: datePtr("2020-01-01")}},
	}
	engine := New(source)

	watchedAt := models.NewTimestamp(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC))
	records := map[string]models.EpisodeRecord{
		"1_1": {
			Watched:   true,
			WatchedAt: &watchedAt,
			TMDBID:    555,
			Name:      "Pilot",
			AirDate:   datePtr("2020-01-01"),
		},
	}

	changed := engine.Enrich(context.Background(), 100, records)
	if len(changed) != 0 {
		t.Errorf("changed records = %d, want 0 for an already fully enriched record", len(changed))
	}
}

// TestEnrichNormalizesLegacyTimestamp verifies that a record which needs
// no metadata but carries a watched timestamp decoded from an epoch
// number is still rewritten canonically.
func TestEnrichNormalizesLegacyTimestamp(t *testing.T) {
	source := newFakeSource()
	source.entries[1] = &models.SeasonEntry{
		Episodes: map[int]models.EpisodeMeta{1: {TMDBID: 555, Name: "Pilot", AirDate: datePtr("2020-01-01")}},
	}
	engine := New(source)

	var record models.EpisodeRecord
	raw := []byte(`{"watched":true,"plays":1,"watched_at":1709323200,"tmdb_id":555,"name":"Pilot","air_date":"2020-01-01T00:00:00Z"}`)
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("unmarshal legacy record: %v", err)
	}
	if record.WatchedAt.Canonical() {
		t.Fatal("epoch-decoded timestamp must not be canonical")
	}

	changed := engine.Enrich(context.Background(), 100, map[string]models.EpisodeRecord{"1_1": record})
	got, ok := changed["1_1"]
	if !ok {
		t.Fatal("record with legacy timestamp must be rewritten")
	}
	if !got.WatchedAt.Canonical() {
		t.Error("timestamp not normalized")
	}
	if !got.WatchedAt.Time.Equal(time.Unix(1709323200, 0)) {
		t.Errorf("normalization changed the instant: %v", got.WatchedAt.Time)
	}
	if !got.Watched || got.Plays != 1 {
		t.Error("caller-owned fields altered during normalization")
	}
}

func TestEnrichIgnoresMalformedKeys(t *testing.T) {
	source := newFakeSource()
	engine := New(source)

	records := map[string]models.EpisodeRecord{
		"nokey":    {Watched: true},
		"x_y":      {Watched: true},
		"_3":       {Watched: true},
		"specials": {},
	}
	changed := engine.Enrich(context.Background(), 100, records)
	if len(changed) != 0 {
		t.Errorf("changed = %v, want none for malformed keys", changed)
	}
	if len(source.calls) != 0 {
		t.Errorf("calls = %v, want no lookups for malformed keys", source.calls)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key         string
		wantSeason  int
		wantEpisode int
		wantErr     bool
	}{
		{"1_2", 1, 2, false},
		{"10_154", 10, 154, false},
		{"0_1", 0, 1, false},
		{"1-2", 0, 0, true},
		{"a_2", 0, 0, true},
		{"1_b", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			season, episode, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if season != tt.wantSeason || episode != tt.wantEpisode {
				t.Errorf("ParseKey(%q) = (%d, %d), want (%d, %d)", tt.key, season, episode, tt.wantSeason, tt.wantEpisode)
			}
		})
	}
}
