package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ezbake/ezbake-image-frack/common/bootstrap"
	"github.com/ezbake/ezbake-image-frack/common/clients"
	"github.com/ezbake/ezbake-image-frack/common/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (store, logger, queue)
	components, err := bootstrap.Setup(ctx, "pipeline")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap pipeline: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	if err := run(ctx, components); err != nil {
		components.Logger.Error("Pipeline error", "error", err)
		os.Exit(1)
	}
}

// run builds the fan-out topology: both stage workers subscribe to the ingest
// topic and process every dispatched image independently.
func run(ctx context.Context, components *bootstrap.Components) error {
	cfg := components.Config

	extractors, indexers, err := buildPools(components)
	if err != nil {
		return err
	}
	defer extractors.Close()
	defer indexers.Close()

	stages := []workers.Stage{
		workers.NewThumbnailStage(components.Images, components.Logger),
		workers.NewMetadataStage(components.Images, extractors, indexers, components.Logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range stages {
		stage := stage
		g.Go(func() error {
			if err := components.Queue.Subscribe(gctx, cfg.Queue.Topic, workers.Handler(stage, components.Logger)); err != nil {
				return fmt.Errorf("subscribe %s stage: %w", stage.Name(), err)
			}
			components.Logger.Info("stage subscribed", "stage", stage.Name(), "topic", cfg.Queue.Topic)
			<-gctx.Done()
			return nil
		})
	}

	components.Logger.Info("pipeline running", "topic", cfg.Queue.Topic)
	return g.Wait()
}

// buildPools creates the borrow/return pools for the collaborator clients.
// Each pooled instance carries its own HTTP client so a slow call never
// blocks an unrelated borrow.
func buildPools(components *bootstrap.Components) (*clients.Pool[workers.MetadataExtractor], *clients.Pool[workers.ImageIndexer], error) {
	cfg := components.Config.Services

	extractors, err := clients.NewPool(cfg.PoolSize, func() (workers.MetadataExtractor, error) {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		return clients.NewMetadataExtractorClient(cfg.ExtractorURL, httpClient, components.Logger), nil
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build extractor pool: %w", err)
	}

	indexers, err := clients.NewPool(cfg.PoolSize, func() (workers.ImageIndexer, error) {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		return clients.NewImageIndexerClient(cfg.IndexerURL, httpClient, components.Logger), nil
	}, nil)
	if err != nil {
		extractors.Close()
		return nil, nil, fmt.Errorf("build indexer pool: %w", err)
	}

	return extractors, indexers, nil
}
