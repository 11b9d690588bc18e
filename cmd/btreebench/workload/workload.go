// Package workload generates the mixed read/write access patterns
// btreebench drives against a tree or comparison backend.
package workload

import (
	"fmt"
	"math/rand"
)

// Index is anything btreebench can drive a workload against: the
// Pebble-backed compare.Backend satisfies it directly, and the
// in-memory btree.BTree satisfies it through btreebench's adapter.
type Index interface {
	Insert(key, val []byte) error
	Get(key []byte) (found bool, val []byte, err error)
}

// Type selects a mixed access pattern.
type Type string

const (
	// OLTP is read-heavy: 90% point lookups, 10% inserts.
	OLTP Type = "oltp"
	// OLAP is write-heavy: 10% point lookups, 90% inserts.
	OLAP Type = "olap"
	// Reporting issues nothing but point lookups over a small, hot key
	// range (the first 100 keys), modeling a dashboard repeatedly
	// re-querying the same keys.
	Reporting Type = "reporting"
	// Duplicates inserts the same small set of keys repeatedly,
	// exercising the extend-and-compact path instead of fresh inserts.
	// This pattern is not in the upstream workload generator this
	// package is modeled on; it is added because it concentrates every
	// insert on at most 16 keys, driving LeafNode.Compact much harder
	// than the oltp and olap inserts spread over the whole keyspace.
	Duplicates Type = "duplicates"
)

// ParseType validates a workload name from configuration.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case OLTP, OLAP, Reporting, Duplicates:
		return Type(s), nil
	default:
		return "", fmt.Errorf("workload: unknown type %q", s)
	}
}

func keyAt(i int) []byte {
	return []byte(fmt.Sprintf("key-%010d", i))
}

// Run drives ops operations of the given type against idx, keyed over
// [0, keyspace). valueSize controls the width of inserted values.
// It returns the number of inserts and lookups issued.
func Run(idx Index, t Type, ops, keyspace, valueSize int, rng *rand.Rand) (inserts, lookups int, err error) {
	val := make([]byte, valueSize)

	switch t {
	case OLTP:
		for i := 0; i < ops; i++ {
			if rng.Intn(100) < 90 {
				if _, _, err = idx.Get(keyAt(rng.Intn(keyspace))); err != nil {
					return inserts, lookups, err
				}
				lookups++
			} else {
				if err = idx.Insert(keyAt(rng.Intn(keyspace)), val); err != nil {
					return inserts, lookups, err
				}
				inserts++
			}
		}
	case OLAP:
		for i := 0; i < ops; i++ {
			if rng.Intn(100) < 10 {
				if _, _, err = idx.Get(keyAt(rng.Intn(keyspace))); err != nil {
					return inserts, lookups, err
				}
				lookups++
			} else {
				if err = idx.Insert(keyAt(rng.Intn(keyspace)), val); err != nil {
					return inserts, lookups, err
				}
				inserts++
			}
		}
	case Reporting:
		hot := keyspace
		if hot > 100 {
			hot = 100
		}
		for i := 0; i < ops; i++ {
			if _, _, err = idx.Get(keyAt(rng.Intn(hot))); err != nil {
				return inserts, lookups, err
			}
			lookups++
		}
	case Duplicates:
		hot := keyspace
		if hot > 16 {
			hot = 16
		}
		for i := 0; i < ops; i++ {
			if err = idx.Insert(keyAt(i%hot), val); err != nil {
				return inserts, lookups, err
			}
			inserts++
		}
	default:
		return 0, 0, fmt.Errorf("workload: unknown type %q", t)
	}
	return inserts, lookups, nil
}
