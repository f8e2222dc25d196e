package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ezbake/ezbake-image-frack/common/store"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Store     StoreConfig
	Redis     RedisConfig
	Pebble    PebbleConfig
	Queue     QueueConfig
	Services  ServicesConfig
	Thumbnail ThumbnailConfig
	Ingest    IngestConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// StoreConfig selects and shapes the row store backing the image table.
type StoreConfig struct {
	// Backend is "memory", "redis", or "pebble".
	Backend     string
	Table       string
	ChunkSizeMB int
	SplitBits   int
}

// ChunkSize returns the configured chunk size in bytes.
func (c StoreConfig) ChunkSize() int {
	return c.ChunkSizeMB * 1024 * 1024
}

// RedisConfig holds Redis connection settings, used by both the redis row
// store backend and the redis queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PebbleConfig holds the embedded store settings.
type PebbleConfig struct {
	Path string
}

// QueueConfig holds message queue settings
type QueueConfig struct {
	// Type is "memory" for single-binary deployments, "redis" for fan-out
	// across processes.
	Type  string
	Topic string
}

// ServicesConfig holds collaborator endpoints and the pool size used for
// their clients.
type ServicesConfig struct {
	ExtractorURL string
	IndexerURL   string
	VaultURL     string
	LocksmithURL string
	PoolSize     int
	Timeout      time.Duration
}

// ThumbnailConfig holds derivation settings.
type ThumbnailConfig struct {
	// DefaultType is the output format used when the caller declares none.
	DefaultType  string
	CacheEntries int
}

// IngestConfig holds document extraction settings.
type IngestConfig struct {
	MaxDepth int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", "memory"),
			Table:       getEnv("STORE_TABLE", "image_index"),
			ChunkSizeMB: getEnvInt("STORE_CHUNK_SIZE_MB", 5),
			SplitBits:   getEnvInt("STORE_SPLIT_BITS", 4),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Pebble: PebbleConfig{
			Path: getEnv("PEBBLE_PATH", "/var/lib/image-frack/pebble"),
		},
		Queue: QueueConfig{
			Type:  getEnv("QUEUE_TYPE", "memory"),
			Topic: getEnv("QUEUE_TOPIC", "image-ingest"),
		},
		Services: ServicesConfig{
			ExtractorURL: getEnv("EXTRACTOR_URL", "http://localhost:8091"),
			IndexerURL:   getEnv("INDEXER_URL", "http://localhost:8092"),
			VaultURL:     getEnv("VAULT_URL", "http://localhost:8093"),
			LocksmithURL: getEnv("LOCKSMITH_URL", "http://localhost:8094"),
			PoolSize:     getEnvInt("CLIENT_POOL_SIZE", 4),
			Timeout:      getEnvDuration("CLIENT_TIMEOUT", 30*time.Second),
		},
		Thumbnail: ThumbnailConfig{
			DefaultType:  getEnv("THUMBNAIL_DEFAULT_TYPE", "jpg"),
			CacheEntries: getEnvInt("THUMBNAIL_CACHE_ENTRIES", 1024),
		},
		Ingest: IngestConfig{
			MaxDepth: getEnvInt("INGEST_MAX_DEPTH", 4),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Backend {
	case "memory", "redis", "pebble":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store table is required")
	}
	if c.Store.ChunkSizeMB < 1 {
		return fmt.Errorf("chunk size must be at least 1 MB, got %d", c.Store.ChunkSizeMB)
	}
	if c.Store.SplitBits < 0 || c.Store.SplitBits > store.MaxSplitBits {
		return fmt.Errorf("split bits must be between 0 and %d, got %d", store.MaxSplitBits, c.Store.SplitBits)
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}
	if c.Queue.Topic == "" {
		return fmt.Errorf("queue topic is required")
	}

	if (c.Store.Backend == "redis" || c.Queue.Type == "redis") && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for redis-backed store or queue")
	}
	if c.Store.Backend == "pebble" && c.Pebble.Path == "" {
		return fmt.Errorf("pebble path is required for the pebble backend")
	}

	if c.Services.PoolSize < 1 {
		return fmt.Errorf("client pool size must be positive, got %d", c.Services.PoolSize)
	}
	if c.Ingest.MaxDepth < 1 {
		return fmt.Errorf("ingest max depth must be positive, got %d", c.Ingest.MaxDepth)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
