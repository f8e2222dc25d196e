package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ezbake/ezbake-image-frack/common/blob"
	"github.com/ezbake/ezbake-image-frack/common/cache"
	"github.com/ezbake/ezbake-image-frack/common/config"
	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/logger"
	"github.com/ezbake/ezbake-image-frack/common/queue"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Connect Redis when a redis-backed store or queue needs it
	needsRedis := (!options.skipStore && components.Config.Store.Backend == "redis") ||
		(!options.skipQueue && components.Config.Queue.Type == "redis")
	if needsRedis {
		components.Logger.Info("connecting to redis", "addr", components.Config.Redis.Addr)
		components.Redis = redis.NewClient(&redis.Options{
			Addr:     components.Config.Redis.Addr,
			Password: components.Config.Redis.Password,
			DB:       components.Config.Redis.DB,
		})
		if err := components.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 4. Initialize the row store and the image store facade (if not skipped)
	if !options.skipStore {
		components.Logger.Info("initializing row store",
			"backend", components.Config.Store.Backend,
			"table", components.Config.Store.Table,
		)

		storeCfg := components.Config.Store
		switch storeCfg.Backend {
		case "memory":
			components.Rows, err = store.NewMemoryStore(storeCfg.Table, storeCfg.SplitBits)
		case "redis":
			components.Rows, err = store.NewRedisStore(components.Redis, storeCfg.Table, storeCfg.SplitBits, components.Logger)
		case "pebble":
			components.Rows, err = store.OpenPebbleStore(components.Config.Pebble.Path, storeCfg.Table, storeCfg.SplitBits, components.Logger)
		default:
			err = fmt.Errorf("unknown store backend: %s", storeCfg.Backend)
		}
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open row store: %w", err)
		}

		if err := components.Rows.Provision(ctx); err != nil {
			components.Rows.Close()
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to provision table: %w", err)
		}

		if options.storeInitHook != nil {
			components.Logger.Info("running store init hook")
			if err := options.storeInitHook(components.Rows); err != nil {
				components.Rows.Close()
				components.Shutdown(ctx)
				return nil, fmt.Errorf("store init hook failed: %w", err)
			}
		}

		var facadeOpts []imagestore.Option
		if !options.skipCache && components.Config.Thumbnail.CacheEntries > 0 {
			components.Logger.Info("initializing artifact cache",
				"entries", components.Config.Thumbnail.CacheEntries,
			)
			components.Artifacts, err = cache.New(components.Config.Thumbnail.CacheEntries)
			if err != nil {
				components.Rows.Close()
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to build artifact cache: %w", err)
			}
			facadeOpts = append(facadeOpts, imagestore.WithArtifactCache(components.Artifacts))
		}
		facadeOpts = append(facadeOpts, imagestore.WithDefaultType(components.Config.Thumbnail.DefaultType))

		components.Images, err = imagestore.New(
			components.Rows,
			components.Logger,
			[]blob.Option{blob.WithChunkSize(storeCfg.ChunkSize())},
			facadeOpts...,
		)
		if err != nil {
			components.Rows.Close()
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to build image store: %w", err)
		}

		// Images owns Rows from here; one cleanup closes both
		components.addCleanup(func() error {
			components.Logger.Info("closing image store")
			return components.Images.Close()
		})
	}

	// 5. Initialize queue (if not skipped)
	if !options.skipQueue {
		components.Logger.Info("initializing queue",
			"type", components.Config.Queue.Type,
		)

		switch components.Config.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(components.Logger)
		case "redis":
			components.Queue = queue.NewRedisQueue(components.Redis, components.Logger)
		default:
			components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", components.Config.Queue.Type)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"store", components.Images != nil,
		"queue", components.Queue != nil,
		"cache", components.Artifacts != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
