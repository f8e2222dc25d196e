package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ezbake/ezbake-image-frack/cmd/ingester/routes"
	"github.com/ezbake/ezbake-image-frack/common/bootstrap"
	"github.com/ezbake/ezbake-image-frack/common/clients"
	"github.com/ezbake/ezbake-image-frack/common/ingest"
	"github.com/ezbake/ezbake-image-frack/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (store, logger, queue, cache)
	components, err := bootstrap.Setup(ctx, "ingester")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap ingester: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	ingester, err := buildIngester(ctx, components)
	if err != nil {
		components.Logger.Error("Failed to build ingester", "error", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Setup health check
	setupHealthCheck(e, components)

	// Register all routes
	routes.RegisterImageRoutes(e, components, ingester)

	// Start server with graceful shutdown
	srv := server.New("ingester", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// buildIngester wires the vault client and the ingestion front. In production
// the broadcast key for the ingest topic is fetched from the key-distribution
// service up front so a misconfigured credential fails fast. The key material
// itself is discarded: the broker transport is not encrypted here, so the
// fetch is a startup verification only.
func buildIngester(ctx context.Context, components *bootstrap.Components) (*ingest.Ingester, error) {
	cfg := components.Config
	httpClient := &http.Client{Timeout: cfg.Services.Timeout}

	if cfg.Service.Environment == "production" {
		locksmith := clients.NewLocksmithClient(cfg.Services.LocksmithURL, httpClient, components.Logger)
		if _, err := locksmith.GetKey(ctx, cfg.Service.Name, cfg.Queue.Topic); err != nil {
			return nil, fmt.Errorf("fetch broadcast key for topic %s: %w", cfg.Queue.Topic, err)
		}
		components.Logger.Info("broadcast key verified", "topic", cfg.Queue.Topic)
	}

	vault := clients.NewDocumentVaultClient(cfg.Services.VaultURL, httpClient, components.Logger)

	return ingest.NewIngester(
		components.Images,
		vault,
		components.Queue,
		cfg.Queue.Topic,
		components.Logger,
		ingest.WithMaxDepth(cfg.Ingest.MaxDepth),
	), nil
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "ingester",
		})
	})
}
