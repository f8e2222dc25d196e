package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is an embedded RowStore over a local pebble database, for
// single-node deployments that want durable storage without a redis
// dependency.
//
// Key layout: table | 0x00 | uvarint(len(row)) | row | uvarint(len(family)) |
// family | qualifier. The row prefix is length-delimited so binary row keys
// cannot alias each other; entries are re-sorted by (family, qualifier) after
// the prefix scan so all backends report the same order.
type PebbleStore struct {
	db        *pebble.DB
	table     string
	splitBits int
	eval      *VisibilityEvaluator
	logger    Logger
}

// OpenPebbleStore opens (creating if absent) a pebble database at path.
func OpenPebbleStore(path, table string, splitBits int, logger Logger) (*PebbleStore, error) {
	if strings.ContainsRune(table, 0) {
		return nil, fmt.Errorf("table name must not contain NUL: %q", table)
	}
	if _, err := Splits(splitBits); err != nil {
		return nil, err
	}
	eval, err := NewVisibilityEvaluator()
	if err != nil {
		return nil, err
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store at %s: %w", path, err)
	}
	return &PebbleStore{
		db:        db,
		table:     table,
		splitBits: splitBits,
		eval:      eval,
		logger:    logger,
	}, nil
}

func (s *PebbleStore) rowPrefix(row []byte) []byte {
	prefix := make([]byte, 0, len(s.table)+1+binary.MaxVarintLen64+len(row))
	prefix = append(prefix, s.table...)
	prefix = append(prefix, 0)
	prefix = binary.AppendUvarint(prefix, uint64(len(row)))
	prefix = append(prefix, row...)
	return prefix
}

func (s *PebbleStore) cellKey(row []byte, family, qualifier string) []byte {
	key := s.rowPrefix(row)
	key = binary.AppendUvarint(key, uint64(len(family)))
	key = append(key, family...)
	key = append(key, qualifier...)
	return key
}

func (s *PebbleStore) tombstoneKey(row []byte) []byte {
	return s.cellKey(row, "", "")
}

// keyUpperBound returns the smallest key strictly greater than every key with
// the given prefix.
func keyUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil // prefix is all 0xff, no upper bound
}

// Provision validates the split configuration. Pebble shards by file
// internally, so leading-byte pre-splitting has nothing to create here.
func (s *PebbleStore) Provision(ctx context.Context) error {
	if _, err := Splits(s.splitBits); err != nil {
		return err
	}
	s.logger.Info("provisioned image store table", "table", s.table, "backend", "pebble")
	return nil
}

func (s *PebbleStore) Scan(ctx context.Context, row []byte, family string, auths Authorizations) ([]Entry, error) {
	prefix := s.rowPrefix(row)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("scan row %x: %w", row, err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		cellFamily, qualifier, err := s.parseCellKey(prefix, iter.Key())
		if err != nil {
			s.logger.Warn("skipping malformed cell key", "table", s.table, "error", err)
			continue
		}
		visibility, value, err := decodeCellValue(iter.Value())
		if err != nil {
			s.logger.Warn("skipping undecodable cell", "table", s.table, "error", err)
			continue
		}
		if isTombstone(cellFamily, qualifier, value) {
			return nil, nil
		}
		if family != "" && cellFamily != family {
			continue
		}
		visible, err := s.eval.Visible(visibility, auths)
		if err != nil || !visible {
			continue
		}
		copied := make([]byte, len(value))
		copy(copied, value)
		entries = append(entries, Entry{
			Family:     cellFamily,
			Qualifier:  qualifier,
			Visibility: visibility,
			Value:      copied,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan row %x: %w", row, err)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *PebbleStore) parseCellKey(prefix, key []byte) (family, qualifier string, err error) {
	suffix := key[len(prefix):]
	familyLen, n := binary.Uvarint(suffix)
	if n <= 0 || uint64(len(suffix)-n) < familyLen {
		return "", "", fmt.Errorf("truncated cell key %x", key)
	}
	suffix = suffix[n:]
	return string(suffix[:familyLen]), string(suffix[familyLen:]), nil
}

func (s *PebbleStore) ApplyAtomic(ctx context.Context, row []byte, muts []Mutation) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	// a write revives a tombstoned row
	if err := batch.Delete(s.tombstoneKey(row), nil); err != nil {
		return fmt.Errorf("apply batch to row %x: %w", row, err)
	}

	for _, mut := range muts {
		key := s.cellKey(row, mut.Family, mut.Qualifier)
		if mut.Delete {
			if err := batch.Delete(key, nil); err != nil {
				return fmt.Errorf("apply batch to row %x: %w", row, err)
			}
			continue
		}
		if err := batch.Set(key, encodeCellValue(mut.Visibility, mut.Value), nil); err != nil {
			return fmt.Errorf("apply batch to row %x: %w", row, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch to row %x: %w", row, err)
	}
	return nil
}

func (s *PebbleStore) TombstoneRow(ctx context.Context, row []byte) error {
	err := s.db.Set(s.tombstoneKey(row), encodeCellValue("", DeleteRowValue), pebble.Sync)
	if err != nil {
		return fmt.Errorf("tombstone row %x: %w", row, err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
