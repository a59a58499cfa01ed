package redis

import (
	"context"
	"time"
)

// MenuCache keeps raw backend payloads in redis for a short TTL so that a
// burst of near-simultaneous deliveries does not hammer the scraping
// backend. Values are the JSON bodies as received; the mensa client decodes
// them the same way on both paths.
type MenuCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewMenuCache(client RedisClient, ttl time.Duration) *MenuCache {
	return &MenuCache{client: client, ttl: ttl}
}

func (c *MenuCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, "mensa_cache:"+key)
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *MenuCache) Store(ctx context.Context, key, payload string) error {
	return c.client.Set(ctx, "mensa_cache:"+key, payload, c.ttl)
}
