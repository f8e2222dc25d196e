// Package thumbnail derives bounded-size raster artifacts from stored
// images. The pixel resampling itself is delegated to disintegration/imaging;
// this package owns the size-class policy and the output-format fallback.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

// Create produces the thumbnail of the given size class, aspect ratio
// preserved and never upscaled. The output is re-encoded in outputFormat;
// formats without a safe encoder fall back to jpeg. Undecodable input is an
// InvalidImageError.
func Create(source *models.Image, size models.ThumbnailSize, outputFormat string) (*models.Thumbnail, error) {
	maxPixels, err := size.MaxPixels()
	if err != nil {
		return nil, err
	}

	decoded, err := imaging.Decode(bytes.NewReader(source.Blob))
	if err != nil {
		reason := "image type is not supported for thumbnail creation"
		if source.MimeType != "" {
			reason = fmt.Sprintf("image of type %s is not supported for thumbnail creation", source.MimeType)
		}
		return nil, &models.InvalidImageError{Reason: reason}
	}

	// never scale up a source smaller than the class bound
	bound := maxPixels
	if longest := maxDimension(decoded); longest < bound {
		bound = longest
	}

	resized := imaging.Fit(decoded, bound, bound, imaging.Lanczos)

	format, mimeType := encoderFor(outputFormat)
	var out bytes.Buffer
	if err := imaging.Encode(&out, resized, format); err != nil {
		return nil, fmt.Errorf("encode %s thumbnail: %w", size, err)
	}

	return &models.Thumbnail{
		ThumbnailBytes: out.Bytes(),
		MimeType:       mimeType,
		Dimensions:     Dimensions(resized),
	}, nil
}

// Dimensions reports the pixel dimensions and aspect ratio of a decoded
// image.
func Dimensions(img image.Image) *models.Dimensions {
	size := img.Bounds().Size()
	dims := &models.Dimensions{Width: size.X, Height: size.Y}
	if size.Y > 0 {
		dims.AspectRatio = float64(size.X) / float64(size.Y)
	}
	return dims
}

// DecodeDimensions decodes just enough of blob to report its dimensions.
func DecodeDimensions(blob []byte) (*models.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return nil, &models.InvalidImageError{Reason: "could not decode image dimensions"}
	}
	dims := &models.Dimensions{Width: cfg.Width, Height: cfg.Height}
	if cfg.Height > 0 {
		dims.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	return dims, nil
}

func maxDimension(img image.Image) int {
	size := img.Bounds().Size()
	if size.X > size.Y {
		return size.X
	}
	return size.Y
}

// encoderFor maps a file extension onto an encoder, falling back to jpeg for
// formats imaging cannot write.
func encoderFor(outputFormat string) (imaging.Format, string) {
	ext := strings.ToLower(strings.TrimPrefix(outputFormat, "."))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return imaging.JPEG, "image/jpeg"
	}

	switch format {
	case imaging.PNG:
		return format, "image/png"
	case imaging.GIF:
		return format, "image/gif"
	case imaging.TIFF:
		return format, "image/tiff"
	case imaging.BMP:
		return format, "image/bmp"
	default:
		return imaging.JPEG, "image/jpeg"
	}
}
