package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ezbake/ezbake-image-frack/common/clients"
	"github.com/ezbake/ezbake-image-frack/common/ident"
	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/queue"
	"github.com/ezbake/ezbake-image-frack/common/status"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// DocumentVault archives original documents; the HTTP client satisfies this.
type DocumentVault interface {
	Put(ctx context.Context, doc *models.Document) (string, error)
}

// Logger is the narrow logging interface the ingester requires.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Ingester runs the front half of the pipeline: archive the document, pull
// its images apart, persist each one, and broadcast it to the stage workers.
type Ingester struct {
	images   *imagestore.Store
	vault    DocumentVault
	events   queue.Queue
	topic    string
	maxDepth int
	logger   Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithMaxDepth bounds container recursion during extraction.
func WithMaxDepth(depth int) Option {
	return func(i *Ingester) { i.maxDepth = depth }
}

// NewIngester wires the ingestion front. topic is where IngestedImage events
// are broadcast.
func NewIngester(images *imagestore.Store, vault DocumentVault, events queue.Queue, topic string, logger Logger, opts ...Option) *Ingester {
	i := &Ingester{
		images:   images,
		vault:    vault,
		events:   events,
		topic:    topic,
		maxDepth: DefaultMaxDepth,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestDocument archives doc, then for each extracted image: records
// EXTRACTED, persists the binary and its thumbnails, records BINARY_SAVED,
// broadcasts the IngestedImage event, and records DISPATCHED. Images are
// processed sequentially; a failing image is logged and skipped so one bad
// member never sinks the document. The vault write is the only fatal step.
func (i *Ingester) IngestDocument(ctx context.Context, doc *models.Document, auths store.Authorizations) (*models.IngestedDocumentInfo, error) {
	ingestID := uuid.NewString()

	// The vault archives under the caller's credential.
	ctx = clients.WithAuthorizations(ctx, auths)

	uri, err := i.vault.Put(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("archive document %s: %w", doc.FileName, err)
	}

	images, err := ExtractImages(doc, i.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("extract images from %s: %w", doc.FileName, err)
	}
	i.logger.Info("extracted images from document", "ingest_id", ingestID, "file_name", doc.FileName, "count", len(images))

	info := &models.IngestedDocumentInfo{
		IngestID:   ingestID,
		URI:        uri,
		Visibility: doc.Visibility,
		FileName:   doc.FileName,
	}

	tracker := i.images.Tracker()
	for _, img := range images {
		img.OriginalDocumentURI = uri

		row := ident.Hash(img.Blob, img.FileName)
		imageID := ident.BytesToHex(row)

		if err := tracker.AddCompletedStage(ctx, row, doc.Visibility, auths, status.StageExtracted); err != nil {
			i.logger.Error("could not record extraction", "image_id", imageID, "error", err)
			continue
		}

		if err := i.images.AddImage(ctx, img, imageID, doc.Visibility); err != nil {
			i.logger.Error("could not store image, skipping", "image_id", imageID, "file_name", img.FileName, "error", err)
			continue
		}

		if err := tracker.AddCompletedStage(ctx, row, doc.Visibility, auths, status.StageBinarySaved); err != nil {
			i.logger.Error("could not record binary save", "image_id", imageID, "error", err)
			continue
		}

		imageInfo := models.IngestedImageInfo{
			OrigDocumentURI: uri,
			Visibility:      doc.Visibility,
			ImageID:         imageID,
			MimeType:        img.MimeType,
			Size:            len(img.Blob),
			FileName:        img.FileName,
		}
		if err := i.publish(ctx, imageInfo, auths); err != nil {
			i.logger.Error("could not dispatch image", "image_id", imageID, "error", err)
			continue
		}

		if err := tracker.AddCompletedStage(ctx, row, doc.Visibility, auths, status.StageDispatched); err != nil {
			i.logger.Error("could not record dispatch", "image_id", imageID, "error", err)
			continue
		}

		info.Images = append(info.Images, imageInfo)
	}

	return info, nil
}

func (i *Ingester) publish(ctx context.Context, imageInfo models.IngestedImageInfo, auths store.Authorizations) error {
	event, err := json.Marshal(&models.IngestedImage{ImageInfo: imageInfo, Authorizations: auths})
	if err != nil {
		return fmt.Errorf("encode ingest event: %w", err)
	}
	return i.events.Publish(ctx, i.topic, event)
}
