package cache

import (
	"time"
)

// DefaultExpires is the TTL used when Set is called with expires <= 0.
const DefaultExpires = 5 * time.Minute

// DefaultMaxSize is the number of entries an LRU holds before it starts evicting.
const DefaultMaxSize = 100

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (Redis). Prevents indefinite hangs on slow or unresponsive
// servers.
const DefaultQueryTimeout = 5 * time.Second

// DefaultPrefix namespaces shared cache keys.
const DefaultPrefix = "itemcache"

// config holds the resolved configuration for a cache implementation.
type config struct {
	defaultExpires time.Duration
	queryTimeout   time.Duration
	maxSize        int
	prefix         string
	now            func() time.Time
}

// Option configures a cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		queryTimeout:   DefaultQueryTimeout,
		maxSize:        DefaultMaxSize,
		prefix:         DefaultPrefix,
		now:            time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.defaultExpires <= 0 {
		cfg.defaultExpires = DefaultExpires
	}
	if cfg.maxSize < 1 {
		cfg.maxSize = DefaultMaxSize
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// WithExpires sets the default TTL for cached values. This is used when
// Set is called with expires <= 0. Defaults to DefaultExpires (5 minutes).
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithMaxSize sets the maximum number of resident entries for the LRU.
// Defaults to DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithQueryTimeout sets the per-operation timeout for the Redis backend.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix sets the key prefix for namespacing shared cache keys.
// An empty prefix disables namespacing.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithClock replaces the time source used for expiry. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}
