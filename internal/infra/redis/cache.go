package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache implements app.Cache on Redis so every instance shares one view.
// Values are plain strings with a TTL; each tag is a set of the keys it
// covers:
//
//	SET    {key} {value} EX {ttl}
//	SADD   {tag} {key}
//	EXPIRE {tag} {ttl} NX|GT
type Cache struct {
	client *redis.Client

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return c.client.Del(ctx, key).Err()
	}
	ttl = c.ttlWithJitter(ttl)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tag, key)
			// The tag set lives as long as its longest-lived member: NX
			// covers a fresh set, GT only ever extends.
			pipe.ExpireNX(ctx, tag, ttl)
			pipe.ExpireGT(ctx, tag, ttl)
		}
		return nil
	})
	return err
}

func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := c.client.SMembers(ctx, tag).Result()
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, tag)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Cache) ttlWithJitter(ttl time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
