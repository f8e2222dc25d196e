// Package models holds the domain records shared across the ingestion front,
// the stage workers, and the collaborator clients.
package models

import "fmt"

// Image is an original binary image extracted from an ingested document.
type Image struct {
	// Blob is the raw encoded image.
	Blob []byte `json:"blob"`

	// FileName is the declared name, including any container path prefix
	// accumulated during extraction.
	FileName string `json:"file_name"`

	// OriginalDocumentURI points at the vaulted source document.
	OriginalDocumentURI string `json:"original_document_uri,omitempty"`

	// MimeType is the detected content type.
	MimeType string `json:"mime_type,omitempty"`
}

// Dimensions describes a decoded raster.
type Dimensions struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// Thumbnail is one derived artifact of an image.
type Thumbnail struct {
	ThumbnailBytes []byte      `json:"thumbnail_bytes"`
	MimeType       string      `json:"mime_type"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
}

// ThumbnailSize names one of the three fixed thumbnail classes. The string
// value doubles as the column family holding that class.
type ThumbnailSize string

const (
	ThumbnailSmall  ThumbnailSize = "SMALL"
	ThumbnailMedium ThumbnailSize = "MEDIUM"
	ThumbnailLarge  ThumbnailSize = "LARGE"
)

// AllThumbnailSizes lists every size class, smallest first.
var AllThumbnailSizes = []ThumbnailSize{ThumbnailSmall, ThumbnailMedium, ThumbnailLarge}

// MaxPixels is the bounding box of the longer image side for the class.
func (s ThumbnailSize) MaxPixels() (int, error) {
	switch s {
	case ThumbnailSmall:
		return 100, nil
	case ThumbnailMedium:
		return 300, nil
	case ThumbnailLarge:
		return 600, nil
	default:
		return 0, fmt.Errorf("unknown thumbnail size %q", string(s))
	}
}

// ParseThumbnailSize maps an external size name onto a class.
func ParseThumbnailSize(name string) (ThumbnailSize, error) {
	switch ThumbnailSize(name) {
	case ThumbnailSmall, ThumbnailMedium, ThumbnailLarge:
		return ThumbnailSize(name), nil
	default:
		return "", fmt.Errorf("unknown thumbnail size %q", name)
	}
}

// InvalidImageError reports binary content that no decoder accepts. It aborts
// only the derivation that hit it, never the surrounding pipeline.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + e.Reason
}
