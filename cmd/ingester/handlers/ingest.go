package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ezbake/ezbake-image-frack/common/bootstrap"
	"github.com/ezbake/ezbake-image-frack/common/ident"
	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/ingest"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// AuthorizationsHeader carries the caller's authorization tokens,
// comma-separated.
const AuthorizationsHeader = "X-Authorizations"

// ImageHandler serves document ingestion and image retrieval
type ImageHandler struct {
	components *bootstrap.Components
	ingester   *ingest.Ingester
	images     *imagestore.Store
}

// NewImageHandler creates a new image handler
func NewImageHandler(components *bootstrap.Components, ingester *ingest.Ingester) *ImageHandler {
	return &ImageHandler{
		components: components,
		ingester:   ingester,
		images:     components.Images,
	}
}

// IngestDocument accepts a composite document and runs the ingestion front
// POST /api/v1/documents
func (h *ImageHandler) IngestDocument(c echo.Context) error {
	var doc models.Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document payload")
	}
	if len(doc.Blob) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "document blob is required")
	}

	auths := callerAuthorizations(c)
	log := h.components.Logger.WithDocument(doc.FileName)
	log.Info("ingesting document", "size", len(doc.Blob))

	info, err := h.ingester.IngestDocument(c.Request().Context(), &doc, auths)
	if err != nil {
		log.Error("document ingest failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "document ingest failed")
	}

	return c.JSON(http.StatusCreated, info)
}

// GetImage returns the stored original
// GET /api/v1/images/:id
func (h *ImageHandler) GetImage(c echo.Context) error {
	imageID := c.Param("id")
	img, err := h.images.GetImage(c.Request().Context(), imageID, callerAuthorizations(c))
	if err != nil {
		return imageError(err)
	}
	if img == nil {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.JSON(http.StatusOK, img)
}

// GetThumbnail returns the derived thumbnail binary
// GET /api/v1/images/:id/thumbnail/:size
func (h *ImageHandler) GetThumbnail(c echo.Context) error {
	imageID := c.Param("id")
	size, err := models.ParseThumbnailSize(c.Param("size"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thumb, err := h.images.GetThumbnail(c.Request().Context(), imageID, callerAuthorizations(c), size)
	if err != nil {
		return imageError(err)
	}
	if thumb == nil {
		return echo.NewHTTPError(http.StatusNotFound, "thumbnail not found")
	}

	mimeType := thumb.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.Blob(http.StatusOK, mimeType, thumb.ThumbnailBytes)
}

// GetIndexingStatus returns the stage-completion record
// GET /api/v1/images/:id/status
func (h *ImageHandler) GetIndexingStatus(c echo.Context) error {
	imageID := c.Param("id")
	st, err := h.images.GetIndexingStatus(c.Request().Context(), imageID, callerAuthorizations(c))
	if err != nil {
		return imageError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// DeleteImage removes the cells visible to the caller
// DELETE /api/v1/images/:id
func (h *ImageHandler) DeleteImage(c echo.Context) error {
	imageID := c.Param("id")
	if err := h.images.DeleteImage(c.Request().Context(), imageID, callerAuthorizations(c)); err != nil {
		return imageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TombstoneImage administratively deletes the whole row
// POST /api/v1/images/:id/tombstone
func (h *ImageHandler) TombstoneImage(c echo.Context) error {
	imageID := c.Param("id")
	h.components.Logger.WithImageID(imageID).Warn("tombstoning image row")
	if err := h.images.Tombstone(c.Request().Context(), imageID); err != nil {
		return imageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func callerAuthorizations(c echo.Context) store.Authorizations {
	header := c.Request().Header.Get(AuthorizationsHeader)
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	auths := make(store.Authorizations, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			auths = append(auths, trimmed)
		}
	}
	return auths
}

func imageError(err error) error {
	var malformed *ident.MalformedIDError
	if errors.As(err, &malformed) {
		return echo.NewHTTPError(http.StatusBadRequest, malformed.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "image store error")
}
