package providers

import "context"

// CacheProvider is a byte-valued key/value cache. The template override cache
// is its only consumer; both the in-process LRU and Redis implement it.
//
// Get reports a missing or expired key with an error wrapping the
// implementation's miss sentinel. A non-positive expiration keeps the entry
// for the implementation's maximum lifetime.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
