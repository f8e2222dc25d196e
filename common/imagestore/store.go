// Package imagestore is the domain facade over the chunked row store: it
// persists original images and their derived thumbnails, answers
// authorization-scoped reads by content id, and exposes per-image stage
// completion.
package imagestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ezbake/ezbake-image-frack/common/blob"
	"github.com/ezbake/ezbake-image-frack/common/cache"
	"github.com/ezbake/ezbake-image-frack/common/ident"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/status"
	"github.com/ezbake/ezbake-image-frack/common/store"
	"github.com/ezbake/ezbake-image-frack/common/thumbnail"
)

// InsertFailedError reports a failed image write, carrying the external id so
// callers can report it without re-deriving the hash.
type InsertFailedError struct {
	ImageID string
	Reason  string
	Err     error
}

func (e *InsertFailedError) Error() string {
	return fmt.Sprintf("insert of image %s failed: %s", e.ImageID, e.Reason)
}

func (e *InsertFailedError) Unwrap() error {
	return e.Err
}

// Logger is the narrow logging interface the facade requires.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Store combines the chunk store and the stage tracker behind the operations
// the ingestion front, the stage workers, and the HTTP surface need.
type Store struct {
	rows        store.RowStore
	blobs       *blob.Store
	tracker     *status.Tracker
	artifacts   *cache.ArtifactCache
	defaultType string
	logger      Logger
}

// Option configures a Store.
type Option func(*Store)

// WithArtifactCache enables read-through caching of thumbnails.
func WithArtifactCache(c *cache.ArtifactCache) Option {
	return func(s *Store) { s.artifacts = c }
}

// WithDefaultType sets the thumbnail output format used when the caller
// declares none.
func WithDefaultType(format string) Option {
	return func(s *Store) { s.defaultType = format }
}

// New builds the facade over rows.
func New(rows store.RowStore, logger Logger, blobOpts []blob.Option, opts ...Option) (*Store, error) {
	blobs, err := blob.New(rows, blobOpts...)
	if err != nil {
		return nil, err
	}
	s := &Store{
		rows:        rows,
		blobs:       blobs,
		tracker:     status.NewTracker(blobs),
		defaultType: "jpg",
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Blobs exposes the underlying chunk store for collaborators that share the
// row layout (the ingestion front writes originals through it).
func (s *Store) Blobs() *blob.Store {
	return s.blobs
}

// Tracker exposes the stage tracker.
func (s *Store) Tracker() *status.Tracker {
	return s.tracker
}

// Ping reports storage liveness.
func (s *Store) Ping() bool {
	return true
}

// AddImage stores the original bytes and pre-computes every thumbnail class
// at insert time. Any encode, store, or derivation failure surfaces as an
// InsertFailedError; nothing is retried.
func (s *Store) AddImage(ctx context.Context, img *models.Image, imageID, visibility string, types ...string) error {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return &InsertFailedError{ImageID: imageID, Reason: "malformed image id", Err: err}
	}

	record, err := json.Marshal(img)
	if err != nil {
		return &InsertFailedError{ImageID: imageID, Reason: "could not serialize image", Err: err}
	}
	if err := s.blobs.Write(ctx, row, blob.DefaultFamily, record, visibility); err != nil {
		s.logger.Error("could not write image", "image_id", imageID, "error", err)
		return &InsertFailedError{ImageID: imageID, Reason: "could not write image into store", Err: err}
	}

	outputType := s.defaultType
	if len(types) > 0 {
		outputType = types[0]
	}

	for _, size := range models.AllThumbnailSizes {
		thumb, err := thumbnail.Create(img, size, outputType)
		if err != nil {
			s.logger.Error("could not create thumbnail", "image_id", imageID, "size", size, "error", err)
			return &InsertFailedError{ImageID: imageID, Reason: fmt.Sprintf("could not create %s thumbnail", size), Err: err}
		}
		if err := s.writeThumbnail(ctx, row, size, thumb, visibility); err != nil {
			s.logger.Error("could not write thumbnail", "image_id", imageID, "size", size, "error", err)
			return &InsertFailedError{ImageID: imageID, Reason: fmt.Sprintf("could not write %s thumbnail", size), Err: err}
		}
	}

	return nil
}

// WriteThumbnail persists one derived thumbnail under its size-class family.
// The thumbnail stage worker owns this write path.
func (s *Store) WriteThumbnail(ctx context.Context, imageID string, size models.ThumbnailSize, thumb *models.Thumbnail, visibility string) error {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return err
	}
	return s.writeThumbnail(ctx, row, size, thumb, visibility)
}

func (s *Store) writeThumbnail(ctx context.Context, row []byte, size models.ThumbnailSize, thumb *models.Thumbnail, visibility string) error {
	record, err := json.Marshal(thumb)
	if err != nil {
		return fmt.Errorf("serialize %s thumbnail: %w", size, err)
	}
	return s.blobs.Write(ctx, row, string(size), record, visibility)
}

// GetImage returns the original image, or (nil, nil) when the id is unknown
// or the caller's authorizations cannot see it.
func (s *Store) GetImage(ctx context.Context, imageID string, auths store.Authorizations) (*models.Image, error) {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return nil, err
	}

	record, err := s.blobs.Read(ctx, row, blob.DefaultFamily, auths)
	if err != nil || record == nil {
		return nil, err
	}

	var img models.Image
	if err := json.Unmarshal(record, &img); err != nil {
		return nil, fmt.Errorf("unmarshal image %s: %w", imageID, err)
	}
	return &img, nil
}

// GetThumbnail returns the derived thumbnail of the given size class, or
// (nil, nil) when absent or not visible.
func (s *Store) GetThumbnail(ctx context.Context, imageID string, auths store.Authorizations, size models.ThumbnailSize) (*models.Thumbnail, error) {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(imageID, size, auths)
	if s.artifacts != nil {
		if record, ok := s.artifacts.Get(cacheKey); ok {
			return unmarshalThumbnail(imageID, size, record)
		}
	}

	record, err := s.blobs.Read(ctx, row, string(size), auths)
	if err != nil || record == nil {
		return nil, err
	}

	if s.artifacts != nil {
		s.artifacts.Set(cacheKey, record)
	}
	return unmarshalThumbnail(imageID, size, record)
}

func unmarshalThumbnail(imageID string, size models.ThumbnailSize, record []byte) (*models.Thumbnail, error) {
	var thumb models.Thumbnail
	if err := json.Unmarshal(record, &thumb); err != nil {
		return nil, fmt.Errorf("unmarshal %s thumbnail of image %s: %w", size, imageID, err)
	}
	return &thumb, nil
}

// GetIndexingStatus returns the stage-completion record; unknown ids yield an
// empty, incomplete status.
func (s *Store) GetIndexingStatus(ctx context.Context, imageID string, auths store.Authorizations) (*status.Status, error) {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return nil, err
	}
	return s.tracker.GetStatus(ctx, row, auths)
}

// DeleteImage removes the cells visible under the caller's authorizations. A
// narrower caller deleting an image leaves cells it cannot see in place; this
// least-privilege scoping is deliberate.
func (s *Store) DeleteImage(ctx context.Context, imageID string, auths store.Authorizations) error {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return err
	}
	if err := s.blobs.DeleteRow(ctx, row, auths); err != nil {
		return err
	}
	if s.artifacts != nil {
		s.artifacts.DeletePrefix(imageID + "|")
	}
	return nil
}

// Tombstone administratively deletes the whole row regardless of visibility.
func (s *Store) Tombstone(ctx context.Context, imageID string) error {
	row, err := ident.HexToBytes(imageID)
	if err != nil {
		return err
	}
	if err := s.blobs.Tombstone(ctx, row); err != nil {
		return err
	}
	if s.artifacts != nil {
		s.artifacts.DeletePrefix(imageID + "|")
	}
	return nil
}

// Close releases the underlying row store.
func (s *Store) Close() error {
	return s.rows.Close()
}

func (s *Store) cacheKey(imageID string, size models.ThumbnailSize, auths store.Authorizations) string {
	sorted := make([]string, len(auths))
	copy(sorted, auths)
	sort.Strings(sorted)
	return imageID + "|" + string(size) + "|" + strings.Join(sorted, ",")
}
