package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentuity/itemcache/logger"
	"github.com/agentuity/itemcache/resilience"
)

// ErrUnavailable is returned, alongside resilience.ErrBreakerOpen, for calls
// skipped while the circuit is open.
var ErrUnavailable = errors.New("shared cache unavailable")

type guardedCache struct {
	next    Shared
	breaker *resilience.Breaker
	logger  logger.Logger
}

var _ Shared = (*guardedCache)(nil)

// NewGuarded wraps a Shared cache in a circuit breaker. Once the backend has
// failed enough times in a row, calls fail fast with resilience.ErrBreakerOpen
// until the cooldown elapses, so an unreachable server costs one timeout per
// cooldown rather than one per request. Skipped calls return an error
// matching both ErrUnavailable and resilience.ErrBreakerOpen.
//
// Ping bypasses the breaker, and a successful Ping closes an open circuit
// without waiting for the cooldown.
func NewGuarded(next Shared, breaker *resilience.Breaker, log logger.Logger) Shared {
	return &guardedCache{next: next, breaker: breaker, logger: log.WithPrefix("[shared]")}
}

func (c *guardedCache) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		data, found, err = c.next.GetContext(ctx, key)
		return err
	})
	return data, found, err
}

func (c *guardedCache) SetContext(ctx context.Context, key string, value []byte, expires time.Duration) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.next.SetContext(ctx, key, value, expires)
	})
}

func (c *guardedCache) do(ctx context.Context, fn func(ctx context.Context) error) error {
	before := c.breaker.State()
	err := c.breaker.Do(ctx, fn)
	if errors.Is(err, resilience.ErrBreakerOpen) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if after := c.breaker.State(); after != before {
		if after == resilience.StateOpen {
			c.logger.Warn("circuit opened after %d consecutive failures: %s", c.breaker.Failures(), err)
		} else {
			c.logger.Info("circuit %s", after)
		}
	}
	return err
}

func (c *guardedCache) Ping(ctx context.Context) error {
	if err := c.next.Ping(ctx); err != nil {
		return err
	}
	if c.breaker.State() != resilience.StateClosed {
		c.breaker.Reset()
		c.logger.Info("circuit closed after successful ping")
	}
	return nil
}

func (c *guardedCache) Close() error {
	return c.next.Close()
}
