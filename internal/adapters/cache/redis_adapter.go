package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/coachpackets/internal/domain/providers"
	redisclient "github.com/zatekoja/coachpackets/internal/infrastructure/clients/redis"
)

// RedisAdapter implements CacheProvider on Redis with the same expiry rules
// as MemoryAdapter, so either can back the template cache.
type RedisAdapter struct {
	client *redisclient.Client
	prefix string
	maxTTL time.Duration
}

// NewRedisAdapter creates a Redis cache. Keys are namespaced with prefix so
// several services can share a database, and no entry outlives maxTTL.
func NewRedisAdapter(client *redisclient.Client, prefix string, maxTTL time.Duration) providers.CacheProvider {
	return &RedisAdapter{
		client: client,
		prefix: prefix,
		maxTTL: maxTTL,
	}
}

func (a *RedisAdapter) key(k string) string {
	return a.prefix + k
}

// ttl caps the requested expiration at maxTTL. Zero means no expiry.
func (a *RedisAdapter) ttl(expirationSeconds int) time.Duration {
	requested := time.Duration(expirationSeconds) * time.Second
	if a.maxTTL <= 0 {
		if requested < 0 {
			return 0
		}
		return requested
	}
	if requested <= 0 || requested > a.maxTTL {
		return a.maxTTL
	}
	return requested
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, a.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return result, nil
}

// Set stores a value; expirationSeconds <= 0 keeps it until maxTTL
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	if err := a.client.Client().Set(ctx, a.key(key), value, a.ttl(expirationSeconds)).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, a.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from cache: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Client().Exists(ctx, a.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s in cache: %w", key, err)
	}
	return n > 0, nil
}
