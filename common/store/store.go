// Package store defines the row-oriented sorted key-value collaborator used
// for all durable state, together with the visibility filtering applied to
// every read.
//
// A row holds cells addressed by (family, qualifier). Each cell carries an
// opaque visibility label attached at write time; scans evaluate the label
// against the caller's authorization set and silently drop cells the caller
// cannot see, so a forbidden row is indistinguishable from an absent one.
//
// Three backends implement the contract: an in-memory table for tests and
// development, a redis-backed table, and an embedded pebble table.
package store

import (
	"context"
	"fmt"
	"sort"
)

// DeleteRowValue marks an entire row as logically deleted. It is written as a
// cell with empty family and qualifier; scans honor the marker by reporting
// the row as empty until a later atomic batch revives it.
var DeleteRowValue = []byte("DEL_ROW")

// Authorizations is the opaque credential set a caller presents on reads.
type Authorizations []string

// Entry is one visible cell returned by a scan.
type Entry struct {
	Family     string
	Qualifier  string
	Visibility string
	Value      []byte
}

// Mutation is one cell change inside an atomic per-row batch. Delete removes
// the addressed cell instead of writing it.
type Mutation struct {
	Family     string
	Qualifier  string
	Visibility string
	Value      []byte
	Delete     bool
}

// RowStore is the narrow contract the rest of the system depends on. All
// implementations order scan results by (family, qualifier) and apply
// mutation batches all-or-nothing per row.
type RowStore interface {
	// Provision creates the table/keyspace on first use, optionally
	// pre-split by leading row byte for write-load distribution.
	Provision(ctx context.Context) error

	// Scan returns the cells of a row visible under auths, restricted to
	// family when family is non-empty. A tombstoned or absent row scans
	// as empty.
	Scan(ctx context.Context, row []byte, family string, auths Authorizations) ([]Entry, error)

	// ApplyAtomic applies the batch as a unit: either every mutation is
	// visible to a subsequent reader or none is. Applying a batch to a
	// tombstoned row revives it.
	ApplyAtomic(ctx context.Context, row []byte, muts []Mutation) error

	// TombstoneRow marks the whole row deleted. This is row-wide; there
	// is no per-family variant.
	TombstoneRow(ctx context.Context, row []byte) error

	Close() error
}

// MaxSplitBits bounds pre-split fan-out to one split per value of the leading
// key byte.
const MaxSplitBits = 8

// Splits returns the range boundaries implied by splitBits: 2^bits - 1
// single-byte boundaries evenly spaced over the leading key byte.
func Splits(splitBits int) ([][]byte, error) {
	if splitBits < 0 || splitBits > MaxSplitBits {
		return nil, fmt.Errorf("split bits must be between 0 and %d, got %d", MaxSplitBits, splitBits)
	}

	splitMax := 1 << splitBits
	splitOffset := MaxSplitBits - splitBits

	splits := make([][]byte, 0, splitMax-1)
	for i := 1; i < splitMax; i++ {
		splits = append(splits, []byte{byte(i << splitOffset)})
	}
	return splits, nil
}

// PartitionFor maps a row key onto one of 2^splitBits ranges by its leading
// byte. Empty rows and zero split bits land in partition 0.
func PartitionFor(row []byte, splitBits int) int {
	if splitBits <= 0 || len(row) == 0 {
		return 0
	}
	return int(row[0] >> (MaxSplitBits - splitBits))
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Family != entries[j].Family {
			return entries[i].Family < entries[j].Family
		}
		return entries[i].Qualifier < entries[j].Qualifier
	})
}

func isTombstone(family, qualifier string, value []byte) bool {
	return family == "" && qualifier == "" && string(value) == string(DeleteRowValue)
}
