package store

import (
	"context"
	"time"

	"github.com/agentuity/itemcache/logger"
	"github.com/agentuity/itemcache/resilience"
	cstr "github.com/agentuity/itemcache/string"
	"github.com/cockroachdb/errors"
)

// Options select and configure the store at startup.
type Options struct {
	// DSN is the PostgreSQL connection string. Empty skips the primary
	// engine and goes straight to the embedded one.
	DSN string
	// Fallback allows the embedded engine when the primary is unreachable.
	Fallback bool
	// FallbackPath is the SQLite database file; empty or ":memory:" keeps it
	// in memory.
	FallbackPath string
	// QueryTimeout bounds each query. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration
	// Retry governs attempts to reach the primary before falling back.
	Retry resilience.RetryConfig
}

// ErrNoStore is returned when neither engine could be opened.
var ErrNoStore = errors.New("no durable store available")

// Open picks the store engine once for the life of the process: the primary
// PostgreSQL database when reachable, otherwise the embedded SQLite engine if
// allowed. The choice is never revisited.
func Open(ctx context.Context, opts Options, log logger.Logger) (Store, error) {
	log = log.WithPrefix("[store]")
	if opts.DSN != "" {
		var s Store
		err := resilience.Retry(ctx, opts.Retry, func() error {
			var err error
			s, err = NewPostgres(ctx, opts.DSN, opts.QueryTimeout)
			if err != nil {
				log.Debug("primary store attempt failed: %s", err)
			}
			return err
		})
		if err == nil {
			log.Info("using postgres store at %s", cstr.MaskDSN(opts.DSN))
			return s, nil
		}
		if !opts.Fallback {
			return nil, noStore(err, "primary store unreachable and fallback disabled")
		}
		log.Warn("primary store unreachable, falling back to sqlite: %s", err)
	} else if !opts.Fallback {
		return nil, errors.Wrap(ErrNoStore, "no store DSN configured and fallback disabled")
	}

	s, err := NewSQLite(ctx, opts.FallbackPath, opts.QueryTimeout)
	if err != nil {
		return nil, noStore(err, "fallback store")
	}
	path := opts.FallbackPath
	if path == "" {
		path = ":memory:"
	}
	log.Info("using sqlite store at %s", path)
	return s, nil
}

// noStore wraps ErrNoStore so it matches errors.Is from either errors
// package, keeping cause in the message and as a secondary error.
func noStore(cause error, msg string) error {
	return errors.WithSecondaryError(errors.Wrapf(ErrNoStore, "%s: %v", msg, cause), cause)
}
