package app

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is a key/value store with TTL and tag-based invalidation.
// Implementations live in infra/memory and infra/redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	InvalidateTag(ctx context.Context, tag string) error
}

func criticalKey(userID string) string {
	return "stats:critical:" + userID
}

// UserTag is the invalidation tag covering every cached entry of a user.
func UserTag(userID string) string {
	return "stats:user:" + userID
}

// cacheLoad decodes key into dst. Cache faults are logged and treated as misses.
func (s *StatsService) cacheLoad(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("stats cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("stats cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (s *StatsService) cacheStore(ctx context.Context, key string, value any, tags ...string) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("stats cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.criticalTTL, tags...); err != nil {
		s.logger.Warn("stats cache write failed", "key", key, "error", err)
	}
}
