package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kmein/menstruation-telegram/internal/config"
	"github.com/kmein/menstruation-telegram/internal/domain"
)

// RedisClient is the small command surface this bot needs: hash field access
// for the user store plus plain keys with TTL for the menu cache.
type RedisClient interface {
	Ping(ctx context.Context) error
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

// HGet maps redis.Nil to domain.ErrNotFound so callers never import the
// driver for its sentinel.
func (c *redClient) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := c.cli.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	return v, err
}

func (c *redClient) HSet(ctx context.Context, key, field, value string) error {
	return c.cli.HSet(ctx, key, field, value).Err()
}

func (c *redClient) HDel(ctx context.Context, key string, fields ...string) error {
	return c.cli.HDel(ctx, key, fields...).Err()
}

func (c *redClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.cli.Keys(ctx, pattern).Result()
}

func (c *redClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	v, err := c.cli.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	return v, err
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }
