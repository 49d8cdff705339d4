package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used when walking a key prefix.
const scanBatch = 200

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisCache stores cache entries in Redis so several engine processes on
// one machine can share a single downloaded catalog.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "guardian:catalog"
	}

	log.Printf("[RedisCache] Connected - DB:%d, prefix:%s", cfg.DB, keyPrefix)
	return NewRedisCacheFromClient(client, keyPrefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCache) fullKey(key string) string {
	return c.keyPrefix + ":" + key
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.fullKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value by key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.fullKey(key)).Err()
}

// DeletePrefix removes every key starting with prefix.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}

	log.Printf("[RedisCache] Deleted %d keys under %s", len(keys), prefix)
	return len(keys), nil
}

// Keys lists the keys starting with prefix, without the cache key prefix.
func (c *RedisCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	trim := len(c.keyPrefix) + 1
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = key[trim:]
	}
	return out, nil
}

func (c *RedisCache) scan(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := c.fullKey(prefix) + "*"
	for {
		batch, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", match, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// GetStats returns statistics about the cached entries.
func (c *RedisCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	keys, err := c.scan(ctx, "")
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"key_prefix": c.keyPrefix,
		"entries":    int64(len(keys)),
	}
	poolStats := c.client.PoolStats()
	stats["pool"] = map[string]interface{}{
		"total_conns": poolStats.TotalConns,
		"idle_conns":  poolStats.IdleConns,
		"hits":        poolStats.Hits,
		"misses":      poolStats.Misses,
	}
	return stats, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ Cache         = (*RedisCache)(nil)
	_ StatsReporter = (*RedisCache)(nil)
)
