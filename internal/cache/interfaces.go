package cache

import (
	"context"
)

// Cache is a durable key/value tier for large, rarely changing blobs such as
// catalog tables. Implementations: MemoryCache (tests, ephemeral runs),
// RedisCache (shared across processes) and the SQLite catalog store in the
// repository package.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, replacing any previous one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Keys lists the keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// StatsReporter is implemented by caches that can describe their contents
// for the admin endpoint.
type StatsReporter interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
