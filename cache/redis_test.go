package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisSetGetCache(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewRedis(client, WithPrefix("test"))
	defer c.Close()
	ctx := context.Background()

	// Miss on empty cache.
	val, found, err := c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	assert.NoError(t, c.SetContext(ctx, "key", []byte("value"), time.Minute))
	val, found, err = c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestRedisKeyPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, WithPrefix("test"))
	assert.NoError(t, c.SetContext(ctx, "42", []byte("x"), time.Minute))
	assert.True(t, mr.Exists("test:42"))

	bare := NewRedis(client, WithPrefix(""))
	assert.NoError(t, bare.SetContext(ctx, "42", []byte("y"), time.Minute))
	assert.True(t, mr.Exists("42"))
}

func TestRedisCacheExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedis(client)
	ctx := context.Background()

	assert.NoError(t, c.SetContext(ctx, "key", []byte("value"), 2*time.Second))
	_, found, err := c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)

	// Use miniredis FastForward to simulate time passing.
	mr.FastForward(3 * time.Second)

	val, found, err := c.GetContext(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestRedisDefaultExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedis(client, WithExpires(30*time.Second), WithPrefix(""))

	assert.NoError(t, c.SetContext(context.Background(), "key", []byte("value"), 0))
	assert.Equal(t, 30*time.Second, mr.TTL("key"))
}

func TestRedisCountsHits(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedis(client)
	ctx := context.Background()

	assert.NoError(t, c.SetContext(ctx, "key", []byte("value"), time.Minute))
	assert.Equal(t, "0", mr.HGet("itemcache:key", "h"))
	for range 3 {
		_, _, err := c.GetContext(ctx, "key")
		require.NoError(t, err)
	}
	assert.Equal(t, "3", mr.HGet("itemcache:key", "h"))

	// Overwrite resets hits.
	assert.NoError(t, c.SetContext(ctx, "key", []byte("other"), time.Minute))
	assert.Equal(t, "0", mr.HGet("itemcache:key", "h"))
}

func TestRedisRoundTripStruct(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewRedis(client)
	ctx := context.Background()

	type record struct {
		ID    int64  `msgpack:"id"`
		Name  string `msgpack:"name"`
		Value string `msgpack:"value"`
	}
	in := record{ID: 7, Name: "foo", Value: "bar"}
	data, err := Encode(in)
	require.NoError(t, err)
	require.NoError(t, c.SetContext(ctx, "7", data, time.Minute))

	raw, found, err := c.GetContext(ctx, "7")
	require.NoError(t, err)
	require.True(t, found)
	out, err := Decode[record](raw)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRedisUnreachable(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedis(client, WithQueryTimeout(200*time.Millisecond))
	ctx := context.Background()

	assert.NoError(t, c.Ping(ctx))
	mr.Close()

	_, found, err := c.GetContext(ctx, "key")
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, c.SetContext(ctx, "key", []byte("v"), time.Minute))
	assert.Error(t, c.Ping(ctx))
}
