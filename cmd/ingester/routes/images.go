package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ezbake/ezbake-image-frack/cmd/ingester/handlers"
	"github.com/ezbake/ezbake-image-frack/common/bootstrap"
	"github.com/ezbake/ezbake-image-frack/common/ingest"
)

// RegisterImageRoutes registers document ingestion and image retrieval routes
func RegisterImageRoutes(e *echo.Echo, components *bootstrap.Components, ingester *ingest.Ingester) {
	h := handlers.NewImageHandler(components, ingester)

	e.POST("/api/v1/documents", h.IngestDocument)

	images := e.Group("/api/v1/images")
	{
		images.GET("/:id", h.GetImage)                     // GET /api/v1/images/{image_id}
		images.GET("/:id/thumbnail/:size", h.GetThumbnail) // GET /api/v1/images/{image_id}/thumbnail/{SMALL|MEDIUM|LARGE}
		images.GET("/:id/status", h.GetIndexingStatus)     // GET /api/v1/images/{image_id}/status
		images.DELETE("/:id", h.DeleteImage)               // DELETE /api/v1/images/{image_id}
		images.POST("/:id/tombstone", h.TombstoneImage)    // admin row delete
	}
}
