package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

func testImage(t *testing.T, width, height int, format imaging.Format) *models.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return &models.Image{Blob: buf.Bytes(), FileName: "test.png", MimeType: "image/png"}
}

func TestCreateBoundsLongerSide(t *testing.T) {
	source := testImage(t, 200, 400, imaging.PNG)

	thumb, err := Create(source, models.ThumbnailSmall, "png")
	require.NoError(t, err)
	require.NotNil(t, thumb.Dimensions)

	assert.LessOrEqual(t, thumb.Dimensions.Width, 100)
	assert.LessOrEqual(t, thumb.Dimensions.Height, 100)
	assert.Equal(t, 100, thumb.Dimensions.Height)
	// aspect ratio 1:2 preserved
	assert.Equal(t, 50, thumb.Dimensions.Width)
	assert.Equal(t, "image/png", thumb.MimeType)
	assert.NotEmpty(t, thumb.ThumbnailBytes)
}

func TestCreateAllSizeClasses(t *testing.T) {
	source := testImage(t, 800, 600, imaging.JPEG)

	for _, size := range models.AllThumbnailSizes {
		thumb, err := Create(source, size, "jpg")
		require.NoError(t, err, "size %s", size)

		max, err := size.MaxPixels()
		require.NoError(t, err)
		assert.LessOrEqual(t, thumb.Dimensions.Width, max)
		assert.LessOrEqual(t, thumb.Dimensions.Height, max)
	}
}

func TestCreateNeverUpscales(t *testing.T) {
	source := testImage(t, 40, 30, imaging.PNG)

	thumb, err := Create(source, models.ThumbnailLarge, "png")
	require.NoError(t, err)
	assert.Equal(t, 40, thumb.Dimensions.Width)
	assert.Equal(t, 30, thumb.Dimensions.Height)
}

func TestCreateFallsBackToJPEG(t *testing.T) {
	source := testImage(t, 120, 120, imaging.PNG)

	thumb, err := Create(source, models.ThumbnailSmall, "webp")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", thumb.MimeType)
}

func TestCreateRejectsUndecodableInput(t *testing.T) {
	source := &models.Image{Blob: []byte("definitely not an image"), MimeType: "application/pdf"}

	_, err := Create(source, models.ThumbnailSmall, "jpg")
	var invalid *models.InvalidImageError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "application/pdf")
}

func TestCreateRejectsUnknownSize(t *testing.T) {
	source := testImage(t, 50, 50, imaging.PNG)
	_, err := Create(source, models.ThumbnailSize("HUGE"), "png")
	assert.Error(t, err)
}

func TestDecodeDimensions(t *testing.T) {
	source := testImage(t, 321, 123, imaging.PNG)

	dims, err := DecodeDimensions(source.Blob)
	require.NoError(t, err)
	assert.Equal(t, 321, dims.Width)
	assert.Equal(t, 123, dims.Height)
	assert.InDelta(t, 321.0/123.0, dims.AspectRatio, 1e-9)

	_, err = DecodeDimensions([]byte("junk"))
	var invalid *models.InvalidImageError
	assert.ErrorAs(t, err, &invalid)
}
