package cache

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLRUSetGet(t *testing.T) {
	c := NewLRU[string]()
	val, found := c.Get("test")
	assert.False(t, found)
	assert.Empty(t, val)

	c.Set("test", "value", 0)
	val, found = c.Get("test")
	assert.True(t, found)
	assert.Equal(t, "value", val)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, DefaultMaxSize, c.Cap())
}

func TestLRUOverwriteKeepsOneEntry(t *testing.T) {
	c := NewLRU[int](WithMaxSize(2))
	c.Set("a", 1, 0)
	c.Set("a", 2, 0)
	assert.Equal(t, 1, c.Len())
	val, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 2, val)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](WithMaxSize(3))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	c.Set("d", 4, 0)

	_, found := c.Get("a")
	assert.False(t, found, "oldest insertion is evicted first")
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"d", "c", "b"}, c.Keys())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUGetPromotes(t *testing.T) {
	c := NewLRU[int](WithMaxSize(3))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)

	// a was inserted first but is now the most recently used.
	_, found := c.Get("a")
	assert.True(t, found)
	c.Set("d", 4, 0)

	_, found = c.Get("a")
	assert.True(t, found)
	_, found = c.Get("b")
	assert.False(t, found)
	assert.Equal(t, []string{"a", "d", "c"}, c.Keys())
}

func TestLRUOverwritePromotes(t *testing.T) {
	c := NewLRU[int](WithMaxSize(2))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("a", 10, 0)
	c.Set("c", 3, 0)

	_, found := c.Get("b")
	assert.False(t, found)
	val, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 10, val)
}

func TestLRUExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU[string](WithClock(clock.Now), WithExpires(time.Minute))
	c.Set("short", "x", 10*time.Second)
	c.Set("default", "y", 0)

	clock.Advance(9 * time.Second)
	_, found := c.Get("short")
	assert.True(t, found)

	clock.Advance(time.Second)
	_, found = c.Get("short")
	assert.False(t, found, "expired once elapsed time reaches the TTL")

	_, found = c.Get("default")
	assert.True(t, found)
	clock.Advance(time.Minute)
	_, found = c.Get("default")
	assert.False(t, found)
	assert.Equal(t, uint64(2), c.Stats().Expirations)
}

func TestLRUExpiryIsLazy(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU[string](WithClock(clock.Now))
	c.Set("a", "x", time.Second)
	c.Set("b", "y", time.Second)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, c.Len(), "expired entries stay resident until looked up")
	_, found := c.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, c.Len())
}

func TestLRUSetResetsExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU[string](WithClock(clock.Now))
	c.Set("a", "x", time.Minute)
	clock.Advance(50 * time.Second)
	c.Set("a", "x", time.Minute)
	clock.Advance(50 * time.Second)
	_, found := c.Get("a")
	assert.True(t, found)
}

func TestLRURemove(t *testing.T) {
	c := NewLRU[int](WithMaxSize(2))
	c.Set("a", 1, 0)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
}

func TestLRUSizeOne(t *testing.T) {
	c := NewLRU[int](WithMaxSize(1))
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, found := c.Get("a")
	assert.False(t, found)
	val, found := c.Get("b")
	assert.True(t, found)
	assert.Equal(t, 2, val)
}

func TestLRUInvalidOptionsFallBack(t *testing.T) {
	c := NewLRU[int](WithMaxSize(0), WithExpires(-time.Second))
	assert.Equal(t, DefaultMaxSize, c.Cap())
}

// TestLRUCapacityAgainstModel drives the cache with a random workload and
// checks it against a naive slice based model.
func TestLRUCapacityAgainstModel(t *testing.T) {
	const max = 8
	c := NewLRU[int](WithMaxSize(max))
	var model []string // most recent first
	touch := func(k string) {
		for i, m := range model {
			if m == k {
				model = append(model[:i], model[i+1:]...)
				break
			}
		}
		model = append([]string{k}, model...)
	}
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 5000; i++ {
		k := fmt.Sprintf("k%d", r.IntN(20))
		if r.IntN(2) == 0 {
			c.Set(k, i, 0)
			touch(k)
			if len(model) > max {
				model = model[:max]
			}
		} else {
			_, found := c.Get(k)
			inModel := false
			for _, m := range model {
				if m == k {
					inModel = true
				}
			}
			assert.Equal(t, inModel, found, "step %d key %s", i, k)
			if found {
				touch(k)
			}
		}
		assert.LessOrEqual(t, c.Len(), max)
	}
	assert.Equal(t, model, c.Keys())
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[int](WithMaxSize(50))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				k := fmt.Sprintf("k%d", (g*31+i)%200)
				if i%3 == 0 {
					c.Set(k, i, 0)
				} else {
					c.Get(k)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
	assert.Len(t, c.Keys(), c.Len())
}
