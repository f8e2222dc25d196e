// Package cache provides a small bounded cache for hot derived artifacts.
// Thumbnails are immutable once written (rows are content-addressed), so
// entries never need invalidation beyond LRU eviction and row deletion.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ArtifactCache caches small derived artifacts keyed by content id, artifact
// name, and a fingerprint of the caller's authorization set. Keying on the
// authorization fingerprint keeps the visibility property intact: a caller
// never observes an entry cached for a differently-authorized caller.
type ArtifactCache struct {
	entries *lru.Cache[string, []byte]
}

// New creates a cache bounded to maxEntries artifacts.
func New(maxEntries int) (*ArtifactCache, error) {
	entries, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create artifact cache: %w", err)
	}
	return &ArtifactCache{entries: entries}, nil
}

// Get returns the cached artifact, if any.
func (c *ArtifactCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

// Set stores an artifact, evicting the least recently used entry when full.
func (c *ArtifactCache) Set(key string, value []byte) {
	c.entries.Add(key, value)
}

// DeletePrefix drops every entry whose key starts with prefix. Used when a
// row is deleted so stale artifacts cannot outlive their image.
func (c *ArtifactCache) DeletePrefix(prefix string) {
	for _, key := range c.entries.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.entries.Remove(key)
		}
	}
}

// Len reports the number of cached artifacts.
func (c *ArtifactCache) Len() int {
	return c.entries.Len()
}
