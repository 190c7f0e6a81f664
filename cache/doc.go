// Package cache provides the two cache tiers that sit in front of the item
// store.
//
// # Local tier
//
// [LRU] is an in-process cache bounded by entry count. Entries expire after a
// TTL and the least recently used entry is evicted when a new key arrives at
// capacity. Expiry is checked on [LRU.Get] only, so [LRU.Len] may count
// entries that can no longer be served.
//
//	local := cache.NewLRU[item.Item](
//	    cache.WithMaxSize(100),
//	    cache.WithExpires(5*time.Minute),
//	)
//	local.Set("1", it, 0) // default TTL
//	it, ok := local.Get("1")
//
// # Shared tier
//
// [Shared] is a byte oriented cache reachable over the network. [NewRedis]
// implements it on top of [github.com/redis/go-redis/v9]: values live in a
// hash ("v" for the payload, "h" for a hit count) with a native Redis TTL, and
// keys are namespaced with [WithPrefix]. Every call is bounded by
// [WithQueryTimeout].
//
// [NewGuarded] wraps any [Shared] in a circuit breaker so a dead server is
// skipped quickly. Values crossing the shared tier are serialized with
// [Encode] and read back with [Decode].
//
//	shared := cache.NewGuarded(
//	    cache.NewRedis(client, cache.WithPrefix("itemcache")),
//	    resilience.NewBreaker(resilience.DefaultBreakerConfig()),
//	    log,
//	)
package cache
