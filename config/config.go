package config

import (
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ITEMCACHE_"

type Cache struct {
	// MaxSize is the local tier's entry limit.
	MaxSize int `yaml:"max_size" env:"CACHE_MAX_SIZE"`
	// TTL applies to both cache tiers.
	TTL Duration `yaml:"ttl" env:"CACHE_TTL"`
}

type Shared struct {
	// URL is a redis:// or rediss:// URL. Empty disables the shared tier.
	URL     string   `yaml:"url" env:"REDIS_URL"`
	Prefix  string   `yaml:"prefix" env:"REDIS_PREFIX"`
	Timeout Duration `yaml:"timeout" env:"REDIS_TIMEOUT"`
	// BreakerFailures consecutive errors open the circuit for BreakerCooldown.
	BreakerFailures int      `yaml:"breaker_failures" env:"REDIS_BREAKER_FAILURES"`
	BreakerCooldown Duration `yaml:"breaker_cooldown" env:"REDIS_BREAKER_COOLDOWN"`
}

func (s Shared) Enabled() bool {
	return s.URL != ""
}

type Store struct {
	// DSN is the PostgreSQL connection string. Empty uses the fallback only.
	DSN          string   `yaml:"dsn" env:"STORE_DSN"`
	Fallback     bool     `yaml:"fallback" env:"STORE_FALLBACK"`
	FallbackPath string   `yaml:"fallback_path" env:"STORE_FALLBACK_PATH"`
	Timeout      Duration `yaml:"timeout" env:"STORE_TIMEOUT"`
	// ConnectRetries is how many extra attempts are made to reach the DSN
	// at startup.
	ConnectRetries int `yaml:"connect_retries" env:"STORE_CONNECT_RETRIES"`
}

type Server struct {
	Addr            string   `yaml:"addr" env:"ADDR"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type Telemetry struct {
	// OTLPEndpoint is an OTLP/HTTP collector URL. Empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
}

type Log struct {
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Level  string `yaml:"level" env:"LOG_LEVEL"`
}

// Config is the full process configuration.
type Config struct {
	Cache     Cache     `yaml:"cache"`
	Shared    Shared    `yaml:"shared"`
	Store     Store     `yaml:"store"`
	Server    Server    `yaml:"server"`
	Telemetry Telemetry `yaml:"telemetry"`
	Log       Log       `yaml:"log"`
}

// Default returns the built in configuration.
func Default() *Config {
	return &Config{
		Cache: Cache{
			MaxSize: 100,
			TTL:     Duration(300000 * time.Millisecond),
		},
		Shared: Shared{
			Prefix:          "itemcache",
			Timeout:         Duration(time.Second),
			BreakerFailures: 5,
			BreakerCooldown: Duration(10 * time.Second),
		},
		Store: Store{
			Fallback:       true,
			FallbackPath:   ":memory:",
			Timeout:        Duration(5 * time.Second),
			ConnectRetries: 2,
		},
		Server: Server{
			Addr:            ":3000",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Telemetry: Telemetry{
			ServiceName: "itemcache",
		},
		Log: Log{
			Format: "console",
			Level:  "info",
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and ITEMCACHE_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "unmarshal yaml from %s", path)
		}
	}
	if err := cfg.applyEnv(env.ToMap(os.Environ())); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envParsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(Duration(0)): func(v string) (interface{}, error) {
		return ParseDuration(v)
	},
}

// applyEnv overrides fields tagged with env from environ. Only variables that
// are present are applied.
func (c *Config) applyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
		FuncMap:     envParsers,
	}); err != nil {
		return errors.Wrap(err, "error applying environment overrides")
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs error
	if c.Cache.MaxSize < 1 {
		errs = errors.CombineErrors(errs, errors.Newf("cache.max_size must be at least 1, got %d", c.Cache.MaxSize))
	}
	if c.Cache.TTL <= 0 {
		errs = errors.CombineErrors(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Store.DSN == "" && !c.Store.Fallback {
		errs = errors.CombineErrors(errs, errors.New("store.dsn is required when store.fallback is disabled"))
	}
	if c.Server.Addr == "" {
		errs = errors.CombineErrors(errs, errors.New("server.addr is required"))
	}
	if c.Shared.BreakerFailures < 1 {
		errs = errors.CombineErrors(errs, errors.New("shared.breaker_failures must be at least 1"))
	}
	return errs
}
