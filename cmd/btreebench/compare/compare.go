// Package compare wraps Pebble (CockroachDB's LSM storage engine) behind
// the same Index shape btreebench drives the slot-directory tree
// through, so the two can be benchmarked side by side under an
// identical workload.
package compare

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// Backend is a Pebble-backed comparison point for the in-memory tree.
// Unlike the tree, it persists to PebbleDir and is not safe for
// concurrent use by multiple goroutines without external locking — the
// same single-writer assumption the tree itself makes.
type Backend struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at dir.
func Open(dir string) (*Backend, error) {
	opts := &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "compare: open")
	}
	return &Backend{db: db}, nil
}

// Close flushes and shuts down the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Insert sets key to val, matching btree.BTree.Insert's signature;
// Backend satisfies workload.Index directly, while the tree does so
// through btreebench's adapter. Pebble has no notion of appending to a
// value array, so repeated inserts of the same key overwrite rather
// than accumulate — a known, documented divergence from the tree's
// multi-value semantics (see Testable Property 10 in SPEC_FULL.md).
func (b *Backend) Insert(key, val []byte) error {
	if err := b.db.Set(key, val, pebble.NoSync); err != nil {
		return errors.Wrap(err, "compare: set")
	}
	return nil
}

// Get returns the value last written for key, and whether it was
// present at all. The returned slice is a copy safe to retain past
// closer.Close(), which Pebble requires the caller to call promptly.
func (b *Backend) Get(key []byte) (bool, []byte, error) {
	val, closer, err := b.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrap(err, "compare: get")
	}
	out := append([]byte(nil), val...)
	closer.Close()
	return true, out, nil
}

// Range iterates keys in [lo, hi), calling fn for each until it
// returns false or the range is exhausted.
func (b *Backend) Range(lo, hi []byte, fn func(key, val []byte) bool) error {
	iter, err := b.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return errors.Wrap(err, "compare: range")
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}
