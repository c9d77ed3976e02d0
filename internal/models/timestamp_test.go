// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		want          time.Time
		wantCanonical bool
		wantErr       bool
	}{
		{
			name:          "canonical rfc3339",
			input:         `"2024-03-01T20:00:00Z"`,
			want:          time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
			wantCanonical: true,
		},
		{
			name:          "rfc3339 with offset",
			input:         `"2024-03-01T21:00:00+01:00"`,
			want:          time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
			wantCanonical: true,
		},
		{
			name:          "bare date-time string",
			input:         `"2024-03-01T20:00:00"`,
			want:          time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
			wantCanonical: false,
		},
		{
			name:          "space separated string",
			input:         `"2024-03-01 20:00:00"`,
			want:          time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
			wantCanonical: false,
		},
		{
			name:          "epoch seconds",
			input:         `1709323200`,
			want:          time.Unix(1709323200, 0).UTC(),
			wantCanonical: false,
		},
		{
			name:          "epoch milliseconds",
			input:         `1709323200000`,
			want:          time.Unix(1709323200, 0).UTC(),
			wantCanonical: false,
		},
		{
			name:    "garbage string",
			input:   `"not a time"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unmarshal %s: err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !ts.Time.Equal(tt.want) {
				t.Errorf("time = %v, want %v", ts.Time, tt.want)
			}
			if ts.Canonical() != tt.wantCanonical {
				t.Errorf("canonical = %v, want %v", ts.Canonical(), tt.wantCanonical)
			}
		})
	}
}

func TestTimestampMarshalIsCanonical(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`1709323200`), &ts); err != nil {
		t.Fatalf("unmarshal epoch: %v", err)
	}

	out, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-03-01T20:00:00Z"` {
		t.Errorf("marshal = %s, want canonical RFC3339", out)
	}

	// Round-tripping the canonical form must flag it canonical.
	var again Timestamp
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !again.Canonical() {
		t.Error("round-tripped timestamp not canonical")
	}
}
