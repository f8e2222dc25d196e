package workers

import (
	"context"
	"errors"

	"github.com/ezbake/ezbake-image-frack/common/clients"
	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/status"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// MetadataExtractor is the slice of the extractor client this stage uses.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, fileName string, blob []byte) (*models.ImageMetadata, error)
}

// ImageIndexer is the slice of the indexer client this stage uses.
type ImageIndexer interface {
	Upsert(ctx context.Context, img *models.IndexedImage) error
}

// MetadataStage extracts structured metadata from each dispatched image,
// upserts the result into the image index, and marks METADATA_EXTRACTED.
// Both collaborators are borrowed from pools around each call.
type MetadataStage struct {
	images     *imagestore.Store
	extractors *clients.Pool[MetadataExtractor]
	indexers   *clients.Pool[ImageIndexer]
	logger     Logger
}

// NewMetadataStage wires the stage.
func NewMetadataStage(images *imagestore.Store, extractors *clients.Pool[MetadataExtractor], indexers *clients.Pool[ImageIndexer], logger Logger) *MetadataStage {
	return &MetadataStage{
		images:     images,
		extractors: extractors,
		indexers:   indexers,
		logger:     logger,
	}
}

func (s *MetadataStage) Name() string {
	return "metadata"
}

// Process fetches the original, runs extraction and indexing, and records
// the stage. A missing original or an extractor InvalidInput ends the item
// without error.
func (s *MetadataStage) Process(ctx context.Context, event *models.IngestedImage) error {
	img, err := fetchOriginal(ctx, s.images, event)
	if err != nil {
		return err
	}
	if img == nil {
		s.logger.Warn("original missing, skipping metadata", "image_id", event.ImageInfo.ImageID)
		return nil
	}

	// Collaborator calls go out under the ingesting caller's credential.
	ctx = clients.WithAuthorizations(ctx, store.Authorizations(event.Authorizations))

	var meta *models.ImageMetadata
	err = s.extractors.Do(ctx, func(extractor MetadataExtractor) error {
		var extractErr error
		meta, extractErr = extractor.ExtractMetadata(ctx, img.FileName, img.Blob)
		return extractErr
	})
	if err != nil {
		var invalid *clients.InvalidInputError
		if errors.As(err, &invalid) {
			s.logger.Warn("extractor rejected binary, skipping metadata", "image_id", event.ImageInfo.ImageID, "reason", invalid.Reason)
			return nil
		}
		return err
	}

	meta.FileName = img.FileName
	meta.MimeType = event.ImageInfo.MimeType
	meta.OriginalDocumentURI = event.ImageInfo.OrigDocumentURI

	indexed := &models.IndexedImage{
		ImageID:    event.ImageInfo.ImageID,
		Visibility: event.ImageInfo.Visibility,
		Metadata:   meta,
	}
	err = s.indexers.Do(ctx, func(indexer ImageIndexer) error {
		return indexer.Upsert(ctx, indexed)
	})
	if err != nil {
		return err
	}

	return markStage(ctx, s.images, event, status.StageMetadataExtracted)
}
