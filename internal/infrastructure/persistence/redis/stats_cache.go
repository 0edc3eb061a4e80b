package redis

import (
	"context"
	"errors"
)

// statsName is the single dashboard payload the platform renders.
const statsName = "platform"

// StatsCache stores the rendered platform statistics payload. It
// implements query.StatsCache with the same miss convention as
// VerificationCache: nil payload, no error.
type StatsCache struct {
	cache *Cache
}

// NewStatsCache creates a new StatsCache.
func NewStatsCache(cache *Cache) *StatsCache {
	return &StatsCache{cache: cache}
}

// Get returns the cached dashboard payload, or nil on a miss.
func (s *StatsCache) Get(ctx context.Context) ([]byte, error) {
	raw, err := s.cache.GetBytes(ctx, StatsKey(statsName))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// Set stores the dashboard payload for TTLStats.
func (s *StatsCache) Set(ctx context.Context, payload []byte) error {
	return s.cache.SetBytes(ctx, StatsKey(statsName), payload, TTLStats)
}

// Invalidate drops every stats entry. Subscribed to catalog-changing
// events so a fresh course shows up before the TTL would expire it.
func (s *StatsCache) Invalidate(ctx context.Context) error {
	return s.cache.DeleteByPattern(ctx, PrefixStats+"*")
}
