package cache

import (
	"sync"
	"time"
)

// node is one resident entry. Nodes form a doubly linked list ordered by
// recency: head is the most recently used, tail the next eviction candidate.
type node[V any] struct {
	key        string
	value      V
	insertedAt time.Time
	expiresAt  time.Time
	prev       *node[V]
	next       *node[V]
}

// LRUStats are cumulative counters for an LRU.
type LRUStats struct {
	Evictions   uint64
	Expirations uint64
}

// LRU is a capacity bounded, time expiring in-process cache with
// least-recently-used eviction. Expiry is lazy: expired entries are only
// dropped when Get finds them, so Len may count entries that are no longer
// servable. Safe for concurrent use.
type LRU[V any] struct {
	mu    sync.Mutex
	nodes map[string]*node[V]
	head  *node[V]
	tail  *node[V]
	stats LRUStats
	cfg   config
}

// NewLRU returns an empty LRU. Recognised options are WithMaxSize,
// WithExpires and WithClock.
func NewLRU[V any](opts ...Option) *LRU[V] {
	cfg := applyOptions(opts)
	return &LRU[V]{
		nodes: make(map[string]*node[V], cfg.maxSize),
		cfg:   cfg,
	}
}

// Get returns the value for key if it is resident and not expired, and marks
// it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[key]
	if !ok {
		return zero, false
	}
	if !c.cfg.now().Before(n.expiresAt) {
		c.unlink(n)
		delete(c.nodes, key)
		c.stats.Expirations++
		return zero, false
	}
	c.moveToFront(n)
	return n.value, true
}

// Set inserts or overwrites key. The entry becomes most recently used and
// its expiry clock restarts. When expires <= 0 the default TTL applies.
// Adding a new key to a full cache evicts the least recently used entry.
func (c *LRU[V]) Set(key string, val V, expires time.Duration) {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	now := c.cfg.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nodes[key]; ok {
		n.value = val
		n.insertedAt = now
		n.expiresAt = now.Add(expires)
		c.moveToFront(n)
		return
	}
	if len(c.nodes) >= c.cfg.maxSize {
		c.evict()
	}
	n := &node[V]{key: key, value: val, insertedAt: now, expiresAt: now.Add(expires)}
	c.nodes[key] = n
	c.pushFront(n)
}

// Remove drops key and reports whether it was resident.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.nodes, key)
	return true
}

// Len is the number of resident entries, including expired ones that have
// not been looked up since they expired.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// Cap is the configured maximum number of entries.
func (c *LRU[V]) Cap() int {
	return c.cfg.maxSize
}

// Keys returns the resident keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.nodes))
	for n := c.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Stats returns a snapshot of the eviction and expiry counters.
func (c *LRU[V]) Stats() LRUStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// evict drops the tail. Caller holds the lock.
func (c *LRU[V]) evict() {
	n := c.tail
	if n == nil {
		return
	}
	c.unlink(n)
	delete(c.nodes, n.key)
	c.stats.Evictions++
}

func (c *LRU[V]) pushFront(n *node[V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU[V]) unlink(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (c *LRU[V]) moveToFront(n *node[V]) {
	if c.head == n {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}
