package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryCache is an in-memory implementation of Cache.
// Use this for development/testing or when nothing should survive a restart.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache creates a new empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
	}
}

// Get retrieves a copy of the value stored under key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, exists := c.entries[key]
	if !exists {
		return nil, ErrCacheMiss
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Set stores a copy of value under key.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	c.entries[key] = valueCopy
	return nil
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Keys lists the keys starting with prefix in sorted order.
func (c *MemoryCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns statistics about the stored entries.
func (c *MemoryCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bytes int64
	for _, v := range c.entries {
		bytes += int64(len(v))
	}
	return map[string]interface{}{
		"entries":       int64(len(c.entries)),
		"payload_bytes": bytes,
	}, nil
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsReporter = (*MemoryCache)(nil)
)
