package bootstrap

import (
	"github.com/ezbake/ezbake-image-frack/common/config"
	"github.com/ezbake/ezbake-image-frack/common/logger"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStore     bool
	skipQueue     bool
	skipCache     bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	storeInitHook func(store.RowStore) error
}

// WithoutStore skips row store initialization
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) {
		o.skipQueue = true
	}
}

// WithoutCache skips artifact cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithStoreInitHook runs a custom function after the row store is provisioned
// Useful for seeding fixtures in development
func WithStoreInitHook(hook func(store.RowStore) error) Option {
	return func(o *options) {
		o.storeInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{
		skipStore: false,
		skipQueue: false,
		skipCache: false,
	}
}
