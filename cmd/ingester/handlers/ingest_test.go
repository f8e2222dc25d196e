package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezbake/ezbake-image-frack/common/bootstrap"
	"github.com/ezbake/ezbake-image-frack/common/clients"
	"github.com/ezbake/ezbake-image-frack/common/config"
	"github.com/ezbake/ezbake-image-frack/common/ingest"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/status"
)

type fakeVault struct{}

func (fakeVault) Put(_ context.Context, doc *models.Document) (string, error) {
	return clients.VaultURIPrefix + doc.FileName, nil
}

func newTestHandler(t *testing.T) (*ImageHandler, *bootstrap.Components) {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Load("test")
	require.NoError(t, err)

	components, err := bootstrap.Setup(ctx, "test", bootstrap.WithCustomConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { components.Shutdown(ctx) })

	ingester := ingest.NewIngester(components.Images, fakeVault{}, components.Queue, cfg.Queue.Topic, components.Logger)
	return NewImageHandler(components, ingester), components
}

func pngBlob(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func doRequest(t *testing.T, handler echo.HandlerFunc, method, path string, body interface{}, auths string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auths != "" {
		req.Header.Set(AuthorizationsHeader, auths)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		values := make([]string, 0, len(params))
		for name, value := range params {
			names = append(names, name)
			values = append(values, value)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	err := handler(c)
	if err != nil {
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		rec.Code = httpErr.Code
	}
	return rec
}

func ingestOne(t *testing.T, h *ImageHandler, auths string) models.IngestedImageInfo {
	t.Helper()
	doc := &models.Document{FileName: "a.png", Blob: pngBlob(t, 160, 120), Visibility: "U"}
	rec := doRequest(t, h.IngestDocument, http.MethodPost, "/api/v1/documents", doc, auths, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var info models.IngestedDocumentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Len(t, info.Images, 1)
	return info.Images[0]
}

func TestIngestAndFetchImage(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.GetImage, http.MethodGet, "/", nil, "U", map[string]string{"id": stored.ImageID})
	require.Equal(t, http.StatusOK, rec.Code)

	var img models.Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, "a.png", img.FileName)
	assert.Equal(t, clients.VaultURIPrefix+"a.png", img.OriginalDocumentURI)
}

func TestGetImageWithoutScopeIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.GetImage, http.MethodGet, "/", nil, "OTHER", map[string]string{"id": stored.ImageID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetImageMalformedIDIs400(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h.GetImage, http.MethodGet, "/", nil, "U", map[string]string{"id": "zz-not-hex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThumbnailBinary(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.GetThumbnail, http.MethodGet, "/", nil, "U", map[string]string{
		"id":   stored.ImageID,
		"size": "SMALL",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestGetThumbnailUnknownSizeIs400(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.GetThumbnail, http.MethodGet, "/", nil, "U", map[string]string{
		"id":   stored.ImageID,
		"size": "GIGANTIC",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReportsFrontHalfStages(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.GetIndexingStatus, http.MethodGet, "/", nil, "U", map[string]string{"id": stored.ImageID})
	require.Equal(t, http.StatusOK, rec.Code)

	var st status.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Has(status.StageExtracted))
	assert.True(t, st.Has(status.StageBinarySaved))
	assert.True(t, st.Has(status.StageDispatched))
	assert.False(t, st.Completed)
}

func TestDeleteImage(t *testing.T) {
	h, _ := newTestHandler(t)
	stored := ingestOne(t, h, "U")

	rec := doRequest(t, h.DeleteImage, http.MethodDelete, "/", nil, "U", map[string]string{"id": stored.ImageID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h.GetImage, http.MethodGet, "/", nil, "U", map[string]string{"id": stored.ImageID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestRejectsEmptyBlob(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h.IngestDocument, http.MethodPost, "/api/v1/documents", &models.Document{FileName: "a.png"}, "U", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
