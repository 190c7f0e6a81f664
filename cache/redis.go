package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
	cfg    config
}

var _ Shared = (*redisCache)(nil)

// NewRedis returns a Shared cache backed by Redis.
// The caller owns the redis.Client lifecycle; Close leaves the client open.
func NewRedis(client *redis.Client, opts ...Option) Shared {
	return &redisCache{
		client: client,
		cfg:    applyOptions(opts),
	}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisCache) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	k := c.prefixKey(key)
	data, err := c.client.HGet(qctx, k, "v").Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// Increment hits (fire-and-forget, don't fail the Get).
	c.client.HIncrBy(qctx, k, "h", 1)
	return data, true, nil
}

func (c *redisCache) SetContext(ctx context.Context, key string, value []byte, expires time.Duration) error {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	k := c.prefixKey(key)
	pipe := c.client.TxPipeline()
	pipe.HSet(qctx, k, "v", value, "h", 0)
	pipe.Expire(qctx, k, expires)
	_, err := pipe.Exec(qctx)
	return err
}

func (c *redisCache) Ping(ctx context.Context) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.Ping(qctx).Err()
}

// Close is a no-op. The caller owns the redis.Client lifecycle.
func (c *redisCache) Close() error {
	return nil
}
