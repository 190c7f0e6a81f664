package cache

import (
	"context"
	"time"
)

// Shared is an out-of-process byte cache reachable over the network. Every
// method may fail with a transport error; callers decide whether that is
// fatal.
type Shared interface {
	// GetContext returns (value, true, nil) on hit and (nil, false, nil) on miss.
	GetContext(ctx context.Context, key string) ([]byte, bool, error)
	// SetContext stores value with a TTL. If expires <= 0, the configured
	// default TTL is used.
	SetContext(ctx context.Context, key string, value []byte, expires time.Duration) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases resources held by the adapter.
	Close() error
}
