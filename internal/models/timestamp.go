// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package models

import (
	"fmt"
	"strconv"
	"time"
)

// canonicalLayout is the one representation Timestamp ever writes back to
// the store. Anything else read from a document (epoch seconds, epoch
// milliseconds, a date-time string without offset) still decodes, but is
// flagged non-canonical so enrichment knows the document needs rewriting.
const canonicalLayout = time.RFC3339

// Timestamp is a store timestamp that tolerates legacy encodings on read
// and always produces the canonical RFC3339 encoding on write.
type Timestamp struct {
	time.Time

	canonical bool
}

// NewTimestamp returns a canonical Timestamp for t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), canonical: true}
}

// Canonical reports whether the value was decoded from (or created in)
// the canonical representation.
func (t Timestamp) Canonical() bool {
	return t.canonical
}

// MarshalJSON always emits the canonical RFC3339 form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Time.UTC().Format(canonicalLayout))), nil
}

// UnmarshalJSON accepts the canonical RFC3339 string, a bare date-time
// string, or a numeric epoch (seconds, or milliseconds when the value is
// implausibly large for seconds).
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)

	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("unquote timestamp: %w", err)
		}
		return t.parseString(unquoted)
	}

	epoch, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse epoch timestamp %q: %w", s, err)
	}
	return t.parseEpoch(epoch)
}

func (t *Timestamp) parseString(s string) error {
	if parsed, err := time.Parse(canonicalLayout, s); err == nil {
		t.Time = parsed.UTC()
		t.canonical = true
		return nil
	}

	// Legacy writers stored "2006-01-02 15:04:05" style strings.
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			t.canonical = false
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format %q", s)
}

func (t *Timestamp) parseEpoch(epoch float64) error {
	// Millisecond epochs for plausible media dates exceed this by orders
	// of magnitude; second epochs never reach it before the year 33658.
	const msCutoff = 1e12
	if epoch >= msCutoff {
		epoch /= 1000
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	t.Time = time.Unix(sec, nsec).UTC()
	t.canonical = false
	return nil
}
