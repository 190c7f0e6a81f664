package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, 300000*time.Millisecond, cfg.Cache.TTL.Std())
	assert.False(t, cfg.Shared.Enabled())
	assert.True(t, cfg.Store.Fallback)
	assert.NoError(t, cfg.Validate())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Duration
	}{
		{"300000", 5 * time.Minute},
		{"1500ms", 1500 * time.Millisecond},
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"1d", 24 * time.Hour},
	}
	for _, tt := range tests {
		d, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, d.Std(), tt.in)
	}
	_, err := ParseDuration("soon")
	assert.Error(t, err)
	_, err = ParseDuration("")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itemcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  max_size: 5
  ttl: 2m
shared:
  url: redis://localhost:6379/0
store:
  dsn: postgres://localhost/items
  fallback: false
server:
  addr: ":9000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Cache.MaxSize)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL.Std())
	assert.True(t, cfg.Shared.Enabled())
	assert.Equal(t, "itemcache", cfg.Shared.Prefix, "unset keys keep defaults")
	assert.Equal(t, "postgres://localhost/items", cfg.Store.DSN)
	assert.False(t, cfg.Store.Fallback)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: whenever\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ITEMCACHE_CACHE_MAX_SIZE", "7")
	t.Setenv("ITEMCACHE_CACHE_TTL", "1000")
	t.Setenv("ITEMCACHE_REDIS_URL", "redis://cache:6379")
	t.Setenv("ITEMCACHE_STORE_FALLBACK", "false")
	t.Setenv("ITEMCACHE_STORE_DSN", "postgres://db/items")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Cache.MaxSize)
	assert.Equal(t, time.Second, cfg.Cache.TTL.Std())
	assert.Equal(t, "redis://cache:6379", cfg.Shared.URL)
	assert.False(t, cfg.Store.Fallback)
}

func TestEnvOverrideErrors(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(map[string]string{
		"ITEMCACHE_CACHE_MAX_SIZE": "many",
		"ITEMCACHE_STORE_FALLBACK": "perhaps",
		"ITEMCACHE_REDIS_TIMEOUT":  "later",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxSize")
}

func TestEnvIgnoresUnprefixed(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(map[string]string{
		"CACHE_MAX_SIZE":       "9",
		"ITEMCACHE_LOG_FORMAT": "json",
		"ITEMCACHE_CACHE_TTL":  "30s",
	}))
	assert.Equal(t, 100, cfg.Cache.MaxSize)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL.Std())
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Cache.MaxSize = 0
	cfg.Cache.TTL = 0
	cfg.Store.Fallback = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_size")
}
