package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/agentuity/itemcache/logger"
	"github.com/agentuity/itemcache/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts PostgreSQL and returns a DSN for it.
func setupPostgresContainer(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "items",
			"POSTGRES_PASSWORD": "items",
			"POSTGRES_DB":       "items",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://items:items@%s:%s/items?sslmode=disable", host, port.Port())
}

func TestPostgresInsertGet(t *testing.T) {
	dsn := setupPostgresContainer(t)
	ctx := context.Background()

	s, err := NewPostgres(ctx, dsn, 0)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "postgres", s.Engine())
	assert.NoError(t, s.Ping(ctx))

	first, err := s.Insert(ctx, "foo", "bar")
	require.NoError(t, err)
	second, err := s.Insert(ctx, "baz", "")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, found, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, got)

	_, found, err = s.Get(ctx, second.ID+100)
	require.NoError(t, err)
	assert.False(t, found)

	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, err := s.Insert(ctx, fmt.Sprintf("item-%d", i), "")
			if assert.NoError(t, err) {
				ids <- it.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)
	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 20)
}

func TestOpenPrefersPostgres(t *testing.T) {
	dsn := setupPostgresContainer(t)
	log := logger.NewTestLogger()

	s, err := Open(context.Background(), Options{DSN: dsn, Fallback: true, Retry: resilience.RetryConfig{}}, log)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "postgres", s.Engine())
	assert.Equal(t, 0, log.Count("WARN"))
}
