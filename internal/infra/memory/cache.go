package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Cache is an in-process implementation of app.Cache. Entries expire after
// their TTL plus up to 10% jitter and can be dropped in bulk by tag.
type Cache struct {
	clock func() time.Time

	mu      sync.Mutex
	rnd     *rand.Rand
	entries map[string]cacheEntry
	tags    map[string]map[string]struct{}
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock allows deterministic expiry in tests.
func NewCacheWithClock(clock func() time.Time) *Cache {
	return &Cache{
		clock:   clock,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cacheEntry),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.After(c.clock()) {
		c.deleteLocked(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteLocked(key)
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = cacheEntry{
		value:     stored,
		expiresAt: c.clock().Add(c.ttlWithJitterLocked(ttl)),
		tags:      tags,
	}
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (c *Cache) InvalidateTag(_ context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.tags[tag] {
		c.deleteLocked(key)
	}
	delete(c.tags, tag)
	return nil
}

func (c *Cache) deleteLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range entry.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

func (c *Cache) ttlWithJitterLocked(ttl time.Duration) time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
