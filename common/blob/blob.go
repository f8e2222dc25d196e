// Package blob stores visibility-scoped binary payloads of arbitrary size as
// chunked cells of a row store. It is the only writer of chunk streams: every
// payload goes through the chunk codec and lands as a single atomic batch, so
// a reader sees either the whole payload or nothing.
package blob

import (
	"context"
	"fmt"

	"github.com/ezbake/ezbake-image-frack/common/chunk"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// DefaultFamily holds original image bytes. Derived artifacts use their own
// families (one per thumbnail size class, one for the status record).
const DefaultFamily = "Image_Chunk"

// Store reads and writes chunked payloads against a RowStore.
type Store struct {
	rows      store.RowStore
	eval      *store.VisibilityEvaluator
	chunkSize int
}

// Option configures a Store.
type Option func(*Store)

// WithChunkSize overrides the chunk size used for writes. Reads are
// insensitive to it.
func WithChunkSize(size int) Option {
	return func(s *Store) { s.chunkSize = size }
}

// New creates a chunk store over rows.
func New(rows store.RowStore, opts ...Option) (*Store, error) {
	eval, err := store.NewVisibilityEvaluator()
	if err != nil {
		return nil, err
	}
	s := &Store{
		rows:      rows,
		eval:      eval,
		chunkSize: chunk.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.chunkSize)
	}
	return s, nil
}

// Write encodes data and applies all resulting cells under visibility as one
// atomic batch. A malformed visibility label fails the write.
func (s *Store) Write(ctx context.Context, row []byte, family string, data []byte, visibility string) error {
	if err := s.eval.Validate(visibility); err != nil {
		return err
	}

	entries, err := chunk.Encode(data, s.chunkSize)
	if err != nil {
		return err
	}

	muts := make([]store.Mutation, 0, len(entries))
	for _, entry := range entries {
		muts = append(muts, store.Mutation{
			Family:     family,
			Qualifier:  entry.Qualifier,
			Visibility: visibility,
			Value:      entry.Value,
		})
	}
	if err := s.rows.ApplyAtomic(ctx, row, muts); err != nil {
		return fmt.Errorf("write %s cells for row %x: %w", family, row, err)
	}
	return nil
}

// Read reconstructs the payload stored under family. It returns (nil, nil)
// when no cells are visible under auths, when the row was tombstoned, or when
// the stored payload was logically empty — absent and forbidden are
// deliberately indistinguishable.
func (s *Store) Read(ctx context.Context, row []byte, family string, auths store.Authorizations) ([]byte, error) {
	entries, err := s.rows.Scan(ctx, row, family, auths)
	if err != nil {
		return nil, fmt.Errorf("read %s cells for row %x: %w", family, row, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	stream := make([]chunk.Entry, 0, len(entries))
	for _, entry := range entries {
		stream = append(stream, chunk.Entry{Qualifier: entry.Qualifier, Value: entry.Value})
	}
	return chunk.Decode(stream)
}

// Tombstone marks the whole row deleted. There is no per-family delete; use
// DeleteRow for caller-scoped removal.
func (s *Store) Tombstone(ctx context.Context, row []byte) error {
	return s.rows.TombstoneRow(ctx, row)
}

// DeleteRow removes only the cells visible under auths, leaving cells the
// caller cannot see untouched.
func (s *Store) DeleteRow(ctx context.Context, row []byte, auths store.Authorizations) error {
	entries, err := s.rows.Scan(ctx, row, "", auths)
	if err != nil {
		return fmt.Errorf("scan row %x for delete: %w", row, err)
	}
	if len(entries) == 0 {
		return nil
	}

	muts := make([]store.Mutation, 0, len(entries))
	for _, entry := range entries {
		muts = append(muts, store.Mutation{
			Family:    entry.Family,
			Qualifier: entry.Qualifier,
			Delete:    true,
		})
	}
	if err := s.rows.ApplyAtomic(ctx, row, muts); err != nil {
		return fmt.Errorf("delete visible cells of row %x: %w", row, err)
	}
	return nil
}
