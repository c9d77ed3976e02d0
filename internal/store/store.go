// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

// Package store wraps BadgerDB as a JSON document store with per-user
// collections, merge-upserts, bounded batched writes and single-document
// atomic transactions.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNotFound is returned when no document exists at the requested key.
var ErrNotFound = errors.New("document not found")

// DefaultBatchSize bounds how many documents one WriteBatch flush carries.
// Batch size is a throughput knob only; correctness never depends on it.
const DefaultBatchSize = 500

// Store is a BadgerDB-backed document store. Values are JSON-encoded.
type Store struct {
	db        *badger.DB
	batchSize int
}

// Options configures a Store.
type Options struct {
	// Path is the Badger data directory. Empty means in-memory (tests).
	Path string

	// BatchSize bounds batched write flushes. Default: DefaultBatchSize.
	BatchSize int
}

// Open opens (or creates) the store at opts.Path.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	// Badger's own logger is noisy at INFO; the store logs through zerolog.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Store{db: db, batchSize: batchSize}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDoc unmarshals the document at key into v.
func (s *Store) GetDoc(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		return getDoc(txn, key, v)
	})
}

// SetDoc marshals v and writes it at key, replacing any existing document.
func (s *Store) SetDoc(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// DeleteDoc removes the document at key. Deleting a missing key is a no-op.
func (s *Store) DeleteDoc(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// MergeUpsert writes the non-empty fields of v over the document at key,
// preserving existing fields v does not name. The read-merge-write happens
// inside one transaction.
func (s *Store) MergeUpsert(key string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return mergeUpsert(txn, key, v)
	})
}

// MergeUpsertBatch merge-upserts every document in docs. Existing documents
// are read in one snapshot, then writes are flushed through a WriteBatch in
// batchSize groups. Batching exists purely for throughput; each document
// write is individually atomic.
func (s *Store) MergeUpsertBatch(docs map[string]any) error {
	if len(docs) == 0 {
		return nil
	}

	merged := make(map[string][]byte, len(docs))
	err := s.db.View(func(txn *badger.Txn) error {
		for key, v := range docs {
			data, err := mergeWithExisting(txn, key, v)
			if err != nil {
				return err
			}
			merged[key] = data
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	pending := 0
	for key, data := range merged {
		if err := wb.Set([]byte(key), data); err != nil {
			return fmt.Errorf("batch set %s: %w", key, err)
		}
		pending++
		if pending >= s.batchSize {
			if err := wb.Flush(); err != nil {
				return fmt.Errorf("flush batch: %w", err)
			}
			wb = s.db.NewWriteBatch()
			pending = 0
		}
	}
	return wb.Flush()
}

// ListDocs calls fn for every document whose key starts with prefix.
// fn receives the key and the raw JSON value.
func (s *Store) ListDocs(prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				return fn(key, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs fn inside one serializable transaction. A concurrent
// conflicting commit surfaces as a conflict error (see IsConflict); the
// caller decides whether losing the race matters.
func (s *Store) Update(fn func(tx *Txn) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn})
	})
}

// IsConflict reports whether err is a transaction conflict, meaning a
// concurrent transaction committed a write to a key this one read.
func IsConflict(err error) bool {
	return errors.Is(err, badger.ErrConflict)
}

// Txn exposes document-level access inside a Store.Update transaction.
type Txn struct {
	txn *badger.Txn
}

// GetDoc unmarshals the document at key into v.
func (t *Txn) GetDoc(key string, v any) error {
	return getDoc(t.txn, key, v)
}

// SetDoc marshals v and writes it at key.
func (t *Txn) SetDoc(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", key, err)
	}
	return t.txn.Set([]byte(key), data)
}

func getDoc(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get document %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("unmarshal document %s: %w", key, err)
		}
		return nil
	})
}

// mergeUpsert merges v over the existing document at key and writes it.
func mergeUpsert(txn *badger.Txn, key string, v any) error {
	data, err := mergeWithExisting(txn, key, v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// mergeWithExisting produces the JSON encoding of v overlaid on whatever
// document currently sits at key. Fields absent from v (via omitempty or
// null) survive; fields v names are replaced.
func mergeWithExisting(txn *badger.Txn, key string, v any) ([]byte, error) {
	incoming, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", key, err)
	}

	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return incoming, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}

	var existing map[string]any
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &existing)
	})
	if err != nil || existing == nil {
		// An unreadable existing value is replaced rather than propagated.
		return incoming, nil
	}

	var overlay map[string]any
	if err := json.Unmarshal(incoming, &overlay); err != nil {
		return nil, fmt.Errorf("remarshal document %s: %w", key, err)
	}
	for field, value := range overlay {
		if value == nil {
			continue
		}
		existing[field] = value
	}

	merged, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("marshal merged document %s: %w", key, err)
	}
	return merged, nil
}
