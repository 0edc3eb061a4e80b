package redis

import (
	"context"
	"errors"
	"time"
)

// VerificationCache stores certificate verification payloads keyed by
// serial. It implements query.VerificationCache: a miss surfaces as a
// nil payload with no error, so the caller falls through to the
// repository without branching on cache internals.
type VerificationCache struct {
	cache *Cache
}

// NewVerificationCache creates a new VerificationCache.
func NewVerificationCache(cache *Cache) *VerificationCache {
	return &VerificationCache{cache: cache}
}

// Get returns the cached payload for a serial, or nil on a miss.
func (v *VerificationCache) Get(ctx context.Context, serial string) ([]byte, error) {
	raw, err := v.cache.GetBytes(ctx, VerifyKey(serial))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// Set stores a verification payload.
func (v *VerificationCache) Set(ctx context.Context, serial string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLVerification
	}
	return v.cache.SetBytes(ctx, VerifyKey(serial), payload, ttl)
}

// Delete drops a serial from the cache. Called after revocation.
func (v *VerificationCache) Delete(ctx context.Context, serial string) error {
	return v.cache.Delete(ctx, VerifyKey(serial))
}
