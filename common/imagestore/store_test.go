package imagestore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbake/ezbake-image-frack/common/cache"
	"github.com/ezbake/ezbake-image-frack/common/ident"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

type testLogger struct {
	t *testing.T
}

func (l *testLogger) Info(msg string, kv ...interface{})  { l.t.Logf("INFO %s %v", msg, kv) }
func (l *testLogger) Error(msg string, kv ...interface{}) { l.t.Logf("ERROR %s %v", msg, kv) }
func (l *testLogger) Warn(msg string, kv ...interface{})  { l.t.Logf("WARN %s %v", msg, kv) }
func (l *testLogger) Debug(msg string, kv ...interface{}) { l.t.Logf("DEBUG %s %v", msg, kv) }

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	rows, err := store.NewMemoryStore("images", 4)
	require.NoError(t, err)
	s, err := New(rows, &testLogger{t: t}, nil, opts...)
	require.NoError(t, err)
	return s
}

func testImage(t *testing.T, width, height int) *models.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return &models.Image{Blob: buf.Bytes(), FileName: "a.png", MimeType: "image/png"}
}

func imageID(img *models.Image) string {
	return ident.BytesToHex(ident.Hash(img.Blob, img.FileName))
}

func TestAddImageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	auths := store.Authorizations{"U"}

	img := testImage(t, 300, 200)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "U", "png"))

	got, err := s.GetImage(ctx, id, auths)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, img.Blob, got.Blob)
	assert.Equal(t, "a.png", got.FileName)
}

func TestAddImagePrecomputesAllThumbnails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	auths := store.Authorizations{"U"}

	img := testImage(t, 800, 600)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "U", "png"))

	for _, size := range models.AllThumbnailSizes {
		thumb, err := s.GetThumbnail(ctx, id, auths, size)
		require.NoError(t, err, "size %s", size)
		require.NotNil(t, thumb, "size %s", size)

		max, err := size.MaxPixels()
		require.NoError(t, err)
		assert.LessOrEqual(t, thumb.Dimensions.Width, max)
		assert.LessOrEqual(t, thumb.Dimensions.Height, max)
	}
}

func TestAddImageRejectsUndecodableBlob(t *testing.T) {
	s := newTestStore(t)

	img := &models.Image{Blob: []byte("%PDF-1.4 not an image"), FileName: "a.pdf"}
	err := s.AddImage(context.Background(), img, imageID(img), "U")

	var insertErr *InsertFailedError
	require.ErrorAs(t, err, &insertErr)
	assert.Equal(t, imageID(img), insertErr.ImageID)
}

func TestAddImageRejectsMalformedID(t *testing.T) {
	s := newTestStore(t)

	err := s.AddImage(context.Background(), testImage(t, 10, 10), "not-hex", "U")

	var insertErr *InsertFailedError
	require.ErrorAs(t, err, &insertErr)
}

func TestGetImageUnknownAndForbiddenLookAlike(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := testImage(t, 20, 20)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "TS", "png"))

	// forbidden
	got, err := s.GetImage(ctx, id, store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Nil(t, got)

	// unknown
	unknown := ident.BytesToHex(ident.Hash([]byte("other"), "b.png"))
	got, err = s.GetImage(ctx, unknown, store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetImageMalformedID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetImage(context.Background(), "zz", store.Authorizations{"U"})

	var malformed *ident.MalformedIDError
	require.ErrorAs(t, err, &malformed)
}

func TestDeleteImageScopedToAuthorizations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := testImage(t, 30, 30)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "S", "png"))

	// a caller without S sees nothing, so its delete is a no-op
	require.NoError(t, s.DeleteImage(ctx, id, store.Authorizations{"U"}))
	got, err := s.GetImage(ctx, id, store.Authorizations{"S"})
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, s.DeleteImage(ctx, id, store.Authorizations{"S"}))
	got, err = s.GetImage(ctx, id, store.Authorizations{"S"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTombstoneHidesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := testImage(t, 40, 40)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "U", "png"))

	require.NoError(t, s.Tombstone(ctx, id))

	got, err := s.GetImage(ctx, id, store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Nil(t, got)
	thumb, err := s.GetThumbnail(ctx, id, store.Authorizations{"U"}, models.ThumbnailSmall)
	require.NoError(t, err)
	assert.Nil(t, thumb)
}

func TestGetIndexingStatusUnknownIsEmpty(t *testing.T) {
	s := newTestStore(t)

	id := ident.BytesToHex(ident.Hash([]byte("x"), "x.png"))
	st, err := s.GetIndexingStatus(context.Background(), id, store.Authorizations{"U"})
	require.NoError(t, err)
	assert.Empty(t, st.CompletedStages)
	assert.False(t, st.Completed)
}

func TestThumbnailCacheServesRepeatReads(t *testing.T) {
	artifacts, err := cache.New(16)
	require.NoError(t, err)
	s := newTestStore(t, WithArtifactCache(artifacts))
	ctx := context.Background()
	auths := store.Authorizations{"U"}

	img := testImage(t, 200, 200)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "U", "png"))

	first, err := s.GetThumbnail(ctx, id, auths, models.ThumbnailSmall)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, artifacts.Len())

	second, err := s.GetThumbnail(ctx, id, auths, models.ThumbnailSmall)
	require.NoError(t, err)
	assert.Equal(t, first.ThumbnailBytes, second.ThumbnailBytes)
}

func TestDeleteImagePurgesCache(t *testing.T) {
	artifacts, err := cache.New(16)
	require.NoError(t, err)
	s := newTestStore(t, WithArtifactCache(artifacts))
	ctx := context.Background()
	auths := store.Authorizations{"U"}

	img := testImage(t, 120, 120)
	id := imageID(img)
	require.NoError(t, s.AddImage(ctx, img, id, "U", "png"))
	_, err = s.GetThumbnail(ctx, id, auths, models.ThumbnailMedium)
	require.NoError(t, err)
	require.Equal(t, 1, artifacts.Len())

	require.NoError(t, s.DeleteImage(ctx, id, auths))
	assert.Equal(t, 0, artifacts.Len())
}
