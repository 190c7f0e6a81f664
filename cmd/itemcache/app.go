package main

import (
	"context"

	"github.com/agentuity/itemcache/cache"
	"github.com/agentuity/itemcache/config"
	"github.com/agentuity/itemcache/health"
	"github.com/agentuity/itemcache/item"
	"github.com/agentuity/itemcache/logger"
	"github.com/agentuity/itemcache/resilience"
	"github.com/agentuity/itemcache/server"
	"github.com/agentuity/itemcache/store"
	cstr "github.com/agentuity/itemcache/string"
	"github.com/agentuity/itemcache/telemetry"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// app is the wired process. Everything is built once at startup.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	store   store.Store
	redis   *redis.Client
	service *item.Service
	server  *server.Server
	tracing telemetry.ShutdownFunc
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	tracing, err := telemetry.New(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, log)
	if err != nil {
		return nil, err
	}
	a.tracing = tracing

	retry := resilience.DefaultRetryConfig()
	retry.MaxRetries = cfg.Store.ConnectRetries
	a.store, err = store.Open(ctx, store.Options{
		DSN:          cfg.Store.DSN,
		Fallback:     cfg.Store.Fallback,
		FallbackPath: cfg.Store.FallbackPath,
		QueryTimeout: cfg.Store.Timeout.Std(),
		Retry:        retry,
	}, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	local := cache.NewLRU[item.Item](
		cache.WithMaxSize(cfg.Cache.MaxSize),
		cache.WithExpires(cfg.Cache.TTL.Std()),
	)

	var shared cache.Shared
	if cfg.Shared.Enabled() {
		opts, err := redis.ParseURL(cfg.Shared.URL)
		if err != nil {
			a.Close(ctx)
			return nil, errors.Wrap(err, "error parsing redis url")
		}
		a.redis = redis.NewClient(opts)
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			MaxFailures: cfg.Shared.BreakerFailures,
			Cooldown:    cfg.Shared.BreakerCooldown.Std(),
		})
		shared = cache.NewGuarded(cache.NewRedis(a.redis,
			cache.WithPrefix(cfg.Shared.Prefix),
			cache.WithQueryTimeout(cfg.Shared.Timeout.Std()),
			cache.WithExpires(cfg.Cache.TTL.Std()),
		), breaker, log)
		if err := shared.Ping(ctx); err != nil {
			log.Warn("shared cache unreachable at startup, continuing without it until it recovers: %s", err)
		} else {
			log.Info("shared cache enabled at %s", cstr.MaskDSN(cfg.Shared.URL))
		}
	}

	a.service = item.NewService(item.Deps{
		Local:  local,
		Shared: shared,
		Store:  a.store,
		Logger: log,
		TTL:    cfg.Cache.TTL.Std(),
	})

	checker := &health.Checker{
		Store:       a.store,
		StoreEngine: a.store.Engine(),
		Shared:      shared,
		Local:       local,
	}
	a.server = server.New(a.service, checker, log)
	return a, nil
}

// Close releases the shared cache client, the store and the tracer provider.
func (a *app) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("error closing redis client: %s", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("error closing store: %s", err)
		}
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			a.log.Warn("error shutting down tracing: %s", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return a.server.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout.Std())
}
