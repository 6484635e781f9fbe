package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zatekoja/coachpackets/internal/domain/providers"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("key not found")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter implements CacheProvider with a bounded in-process LRU. It
// stands in for Redis on single-instance deployments.
type MemoryAdapter struct {
	lru    *expirable.LRU[string, memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryAdapter creates an LRU cache holding at most size entries, none
// of which outlive maxTTL regardless of the expiration passed to Set.
func NewMemoryAdapter(size int, maxTTL time.Duration) providers.CacheProvider {
	return newMemoryAdapter(size, maxTTL, time.Now)
}

func newMemoryAdapter(size int, maxTTL time.Duration, now func() time.Time) *MemoryAdapter {
	if size <= 0 {
		size = 1024
	}
	return &MemoryAdapter{
		lru:    expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		maxTTL: maxTTL,
		now:    now,
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := a.lru.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		a.lru.Remove(key)
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	return entry.value, nil
}

// Set stores a value; expirationSeconds <= 0 keeps it until the LRU TTL
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.lru.Add(key, entry)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.lru.Remove(key)
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	return err == nil, nil
}
