package appconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cruddemo/modules/db/postgres"
	"cruddemo/modules/db/redis"
	"cruddemo/modules/middleware/ratelimit"
	"cruddemo/modules/telemetry"

	"github.com/caarlos0/env/v11"
)

type StorageBackend string

const (
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

type RateLimitBackend string

const (
	RateLimitRedis RateLimitBackend = "redis"
	RateLimitLocal RateLimitBackend = "local"
)

type (
	Config struct {
		Env      string     `env:"ENV" envDefault:"dev"`
		LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"debug"`

		HTTP HTTPConfig `envPrefix:"HTTP_"`

		// --- persistence ---
		StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"postgres"`
		MigrateOnStart bool           `env:"MIGRATE_ON_START" envDefault:"true"`
		SeedDemoData   bool           `env:"SEED_DEMO_DATA"`

		// --- core infra ----
		Redis    redis.RedisConfig       `envPrefix:"REDIS_"`
		Postgres postgres.PostgresConfig `envPrefix:"POSTGRES_"`
		Cache    CacheConfig             `envPrefix:"CACHE_"`

		// --- middlewares ----
		RateLimitBackend RateLimitBackend         `env:"RATE_LIMIT_BACKEND" envDefault:"local"`
		RateLimit        ratelimit.RestHTTPConfig `envPrefix:"RATE_LIMIT_"`

		// --- wiring demo ---
		Coach CoachConfig `envPrefix:"COACH_"`

		// --- otel ----
		// since it has special naming conventions, we do not use prefix here
		Otel telemetry.Config
	}

	HTTPConfig struct {
		Host         string        `env:"HOST" envDefault:"0.0.0.0"`
		Port         int           `env:"PORT" envDefault:"8080"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	}

	// CacheConfig controls the Redis read-through cache in front of the repositories.
	CacheConfig struct {
		Enabled bool          `env:"ENABLED"`
		TTL     time.Duration `env:"TTL" envDefault:"5m"`

		// ClientSide serves repeated reads from rueidis' in-process cache.
		ClientSide bool `env:"CLIENT_SIDE"`
	}

	// CoachConfig holds the qualifiers used to pick the coaches injected into the demo API.
	CoachConfig struct {
		Primary string `env:"PRIMARY" envDefault:"cricketCoach"`
		Another string `env:"ANOTHER" envDefault:"cricketCoach"`
	}
)

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(c *Config) error {
	var errs []error
	switch c.StorageBackend {
	case StoragePostgres, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("appconfig: unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	switch c.RateLimitBackend {
	case RateLimitLocal:
	case RateLimitRedis:
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("appconfig: RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("appconfig: unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend))
	}
	if c.Cache.Enabled && !c.Redis.Enabled {
		errs = append(errs, errors.New("appconfig: CACHE_ENABLED=true requires REDIS_ENABLED=true"))
	}
	if c.Cache.ClientSide && (c.Cache.TTL <= 0 || c.Redis.DisableCache) {
		errs = append(errs, errors.New("appconfig: CACHE_CLIENT_SIDE=true requires a positive CACHE_TTL and REDIS_DISABLE_CACHE=false"))
	}
	if strings.TrimSpace(c.Coach.Primary) == "" || strings.TrimSpace(c.Coach.Another) == "" {
		errs = append(errs, errors.New("appconfig: coach qualifiers must not be empty"))
	}
	return errors.Join(errs...)
}
