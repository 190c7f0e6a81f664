package item

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/agentuity/itemcache/cache"
	"github.com/agentuity/itemcache/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Repository is the durable store as seen by the Service.
type Repository interface {
	// Insert persists a new item and returns it with its assigned id.
	Insert(ctx context.Context, name, value string) (Item, error)
	// Get returns (item, true, nil) when found and (Item{}, false, nil) when
	// no row exists.
	Get(ctx context.Context, id int64) (Item, bool, error)
}

// Deps is everything the Service coordinates. It is assembled once at
// startup; Shared may be nil, which removes the shared tier entirely.
type Deps struct {
	Local  *cache.LRU[Item]
	Shared cache.Shared
	Store  Repository
	Logger logger.Logger
	// TTL is applied to entries written to the shared tier. Zero means the
	// shared cache's own default. The local tier always uses its default.
	TTL time.Duration
}

// Stats are the cumulative read counters plus the local tier's occupancy
// and eviction counters.
type Stats struct {
	Hits        uint64 `json:"cache_hits"`
	Misses      uint64 `json:"cache_misses"`
	LocalSize   int    `json:"cache_size"`
	Evictions   uint64 `json:"cache_evictions"`
	Expirations uint64 `json:"cache_expirations"`
}

// Service reads items through the local cache, the shared cache and the
// store, in that order, and fills the faster tiers on the way back. Writes
// go to the store first and then populate both caches.
//
// Local entries are never invalidated by writes in other processes; a stale
// local entry lives until its TTL runs out. A read that misses concurrently
// with a create of the same id may also refill the local tier after the
// create did. Items are immutable, so both writes carry the same value.
type Service struct {
	local  *cache.LRU[Item]
	shared cache.Shared
	store  Repository
	logger logger.Logger
	ttl    time.Duration
	tracer trace.Tracer
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewService returns a Service. Local, Store and Logger are required.
func NewService(deps Deps) *Service {
	if deps.Local == nil || deps.Store == nil || deps.Logger == nil {
		panic("item: NewService requires Local, Store and Logger")
	}
	return &Service{
		local:  deps.Local,
		shared: deps.Shared,
		store:  deps.Store,
		logger: deps.Logger.WithPrefix("[item]"),
		ttl:    deps.TTL,
		tracer: otel.Tracer("github.com/agentuity/itemcache/item"),
	}
}

// Read returns the item for id and the tier it came from.
func (s *Service) Read(ctx context.Context, id int64) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "itemcache.read", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer span.End()

	if id <= 0 {
		return Result{}, validationError("invalid id %d", id)
	}
	key := Key(id)

	if it, ok := s.local.Get(key); ok {
		s.hits.Add(1)
		span.SetAttributes(attribute.String("item.source", string(SourceMemory)))
		return Result{Source: SourceMemory, Item: it}, nil
	}

	if it, ok := s.readShared(ctx, key); ok {
		s.local.Set(key, it, 0)
		s.hits.Add(1)
		span.SetAttributes(attribute.String("item.source", string(SourceShared)))
		return Result{Source: SourceShared, Item: it}, nil
	}

	s.misses.Add(1)
	it, found, err := s.store.Get(ctx, id)
	if err != nil {
		err = StoreError(err, "read item")
		s.logger.Error("store read failed for id %d: %s", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store read failed")
		return Result{}, err
	}
	if !found {
		return Result{}, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	s.populate(ctx, key, it)
	span.SetAttributes(attribute.String("item.source", string(SourceStore)))
	return Result{Source: SourceStore, Item: it}, nil
}

// Create stores a new item and primes both caches with it. Cache failures
// after a successful insert are logged and ignored.
func (s *Service) Create(ctx context.Context, name, value string) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "itemcache.create")
	defer span.End()

	if err := ValidateCreate(name); err != nil {
		return Item{}, err
	}
	it, err := s.store.Insert(ctx, name, value)
	if err != nil {
		err = StoreError(err, "create item")
		s.logger.Error("store insert failed: %s", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store insert failed")
		return Item{}, err
	}
	span.SetAttributes(attribute.Int64("item.id", it.ID))
	s.populate(ctx, Key(it.ID), it)
	return it, nil
}

// Stats returns the hit and miss counters and the local tier's resident
// count and lifetime counters.
func (s *Service) Stats() Stats {
	local := s.local.Stats()
	return Stats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		LocalSize:   s.local.Len(),
		Evictions:   local.Evictions,
		Expirations: local.Expirations,
	}
}

func (s *Service) readShared(ctx context.Context, key string) (Item, bool) {
	if s.shared == nil {
		return Item{}, false
	}
	data, found, err := s.shared.GetContext(ctx, key)
	if err != nil {
		s.sharedFailed("get", key, err)
		return Item{}, false
	}
	if !found {
		return Item{}, false
	}
	it, err := cache.Decode[Item](data)
	if err != nil {
		s.logger.Warn("discarding undecodable shared entry %s: %s", key, err)
		return Item{}, false
	}
	return it, true
}

func (s *Service) populate(ctx context.Context, key string, it Item) {
	s.local.Set(key, it, 0)
	if s.shared == nil {
		return
	}
	data, err := cache.Encode(it)
	if err != nil {
		s.logger.Warn("encode %s for shared cache: %s", key, err)
		return
	}
	if err := s.shared.SetContext(ctx, key, data, s.ttl); err != nil {
		s.sharedFailed("set", key, err)
	}
}

// sharedFailed logs a shared tier error. Calls skipped by an open circuit
// are routine until the cooldown ends, so they only show at trace level.
func (s *Service) sharedFailed(op, key string, err error) {
	if errors.Is(err, ErrSharedUnavailable) {
		s.logger.Trace("shared %s %s skipped: %s", op, key, err)
		return
	}
	s.logger.Debug("shared %s %s: %s", op, key, err)
}
