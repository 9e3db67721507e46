package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

// CacheRepository provides helpers around Redis interactions for caching catalog and statistics payloads.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// LocalCacheRepository keeps cached payloads in process memory. Patterns are
// treated as key prefixes, so only trailing wildcards are supported.
type LocalCacheRepository struct {
	cache *ccache.Cache[[]byte]
}

// NewLocalCacheRepository wraps an in-process cache.
func NewLocalCacheRepository(cache *ccache.Cache[[]byte]) *LocalCacheRepository {
	return &LocalCacheRepository{cache: cache}
}

// Get retrieves and unmarshals the cached value.
func (r *LocalCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	item := r.cache.Get(key)
	if item == nil || item.Expired() {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(item.Value(), dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals and stores the value.
func (r *LocalCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.cache.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes every key sharing the pattern's prefix.
func (r *LocalCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	r.cache.DeletePrefix(strings.TrimSuffix(pattern, "*"))
	return nil
}

// Ping always succeeds.
func (r *LocalCacheRepository) Ping(context.Context) error { return nil }

// Close stops the cache's background worker.
func (r *LocalCacheRepository) Close() error {
	r.cache.Stop()
	return nil
}

// MemcacheRepository stores cached payloads in Memcached. Memcached cannot
// enumerate keys, so every key embeds a per-namespace generation and
// DeleteByPattern bumps that generation instead of deleting entries.
type MemcacheRepository struct {
	client *memcache.Client
}

// NewMemcacheRepository wraps a Memcached client.
func NewMemcacheRepository(client *memcache.Client) *MemcacheRepository {
	return &MemcacheRepository{client: client}
}

// Get retrieves and unmarshals the cached value.
func (r *MemcacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	versioned, err := r.versionedKey(key)
	if err != nil {
		return err
	}
	item, err := r.client.Get(versioned)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("memcache get %s: %w", key, err)
	}
	if err := json.Unmarshal(item.Value, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals and stores the value.
func (r *MemcacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	versioned, err := r.versionedKey(key)
	if err != nil {
		return err
	}
	item := &memcache.Item{Key: versioned, Value: payload, Expiration: int32(ttl.Seconds())}
	if err := r.client.Set(item); err != nil {
		return fmt.Errorf("memcache set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern invalidates the namespace of the pattern, the part before the first ':'.
func (r *MemcacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	genKey := generationKey(namespaceOf(strings.TrimSuffix(pattern, "*")))
	if _, err := r.client.Increment(genKey, 1); err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return fmt.Errorf("memcache bump %s: %w", genKey, err)
		}
		if err := r.client.Set(&memcache.Item{Key: genKey, Value: []byte("1")}); err != nil {
			return fmt.Errorf("memcache init %s: %w", genKey, err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (r *MemcacheRepository) Ping(context.Context) error {
	return r.client.Ping()
}

// Close releases idle connections.
func (r *MemcacheRepository) Close() error {
	return r.client.Close()
}

func (r *MemcacheRepository) versionedKey(key string) (string, error) {
	genKey := generationKey(namespaceOf(key))
	gen := uint64(0)
	item, err := r.client.Get(genKey)
	switch {
	case err == nil:
		gen, _ = strconv.ParseUint(strings.TrimSpace(string(item.Value)), 10, 64)
	case !errors.Is(err, memcache.ErrCacheMiss):
		return "", fmt.Errorf("memcache get %s: %w", genKey, err)
	}
	return fmt.Sprintf("%s@%d", key, gen), nil
}

func namespaceOf(key string) string {
	if idx := strings.Index(key, ":"); idx >= 0 {
		return key[:idx]
	}
	return key
}

func generationKey(namespace string) string {
	return "gen:" + namespace
}
