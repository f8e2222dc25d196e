package workers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/status"
	"github.com/ezbake/ezbake-image-frack/common/thumbnail"
)

// ThumbnailStage derives the three thumbnail classes for each dispatched
// image and marks THUMBNAILS_GENERATED. Inserts already pre-compute
// thumbnails, so this stage also repairs images whose artifacts were lost or
// written by an older class layout.
type ThumbnailStage struct {
	images *imagestore.Store
	logger Logger
}

// NewThumbnailStage wires the stage.
func NewThumbnailStage(images *imagestore.Store, logger Logger) *ThumbnailStage {
	return &ThumbnailStage{images: images, logger: logger}
}

func (s *ThumbnailStage) Name() string {
	return "thumbnails"
}

// Process fetches the original, re-encodes it into each size class in the
// source format, and records the stage. A missing original or an unreadable
// binary ends the item without error.
func (s *ThumbnailStage) Process(ctx context.Context, event *models.IngestedImage) error {
	img, err := fetchOriginal(ctx, s.images, event)
	if err != nil {
		return err
	}
	if img == nil {
		s.logger.Warn("original missing, skipping thumbnails", "image_id", event.ImageInfo.ImageID)
		return nil
	}

	format := outputFormat(img)
	for _, size := range models.AllThumbnailSizes {
		thumb, err := thumbnail.Create(img, size, format)
		if err != nil {
			var invalid *models.InvalidImageError
			if errors.As(err, &invalid) {
				s.logger.Warn("binary is not a decodable image, skipping thumbnails", "image_id", event.ImageInfo.ImageID, "reason", invalid.Reason)
				return nil
			}
			return err
		}
		if err := s.images.WriteThumbnail(ctx, event.ImageInfo.ImageID, size, thumb, event.ImageInfo.Visibility); err != nil {
			return err
		}
	}

	return markStage(ctx, s.images, event, status.StageThumbnailsGenerated)
}

// outputFormat picks the re-encode format from the file extension, falling
// back to the mime subtype, then jpeg.
func outputFormat(img *models.Image) string {
	if ext := strings.TrimPrefix(filepath.Ext(img.FileName), "."); ext != "" {
		return ext
	}
	if idx := strings.IndexByte(img.MimeType, '/'); idx >= 0 && idx+1 < len(img.MimeType) {
		return img.MimeType[idx+1:]
	}
	return "jpg"
}
