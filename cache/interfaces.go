// Package cache provides a unified caching interface for upstream API
// responses with TTL-based expiration.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry represents a cached upstream response body
type Entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Read retrieves a cache entry by key with TTL validation.
	// Returns the entry and true if found and not older than maxAge.
	// A zero maxAge disables the age check.
	Read(ctx context.Context, key string, maxAge time.Duration) (*Entry, bool)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Write stores a cache entry with the given key, stamping FetchedAt
	Write(ctx context.Context, key string, entry *Entry) error
}

// ReadWriter combines both cache operations
type ReadWriter interface {
	Reader
	Writer
}

// KeyGenerator generates cache keys from request parameters
type KeyGenerator interface {
	// KeyFor generates a stable cache key from path and parameters
	KeyFor(path string, params map[string]string) string
}

// Cache is the main interface that combines all cache operations
type Cache interface {
	ReadWriter
	KeyGenerator
}
