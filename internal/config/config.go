package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/brandeduk/catalog/pkg/config"
	"github.com/brandeduk/catalog/pkg/database"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8020"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"brandeduk"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"brandeduk_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"brandeduk"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Snapshot backend selection (postgres or memory)
	SnapshotStore string `env:"SNAPSHOT_STORE" envDefault:"postgres"`

	// Query planning
	PlanTimeout time.Duration `env:"PLAN_TIMEOUT" envDefault:"3s"`

	// Redis (optional; the service degrades to a local-only cache without it)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cache TTLs
	CacheTTLList   time.Duration `env:"CACHE_TTL_LIST" envDefault:"5m"`
	CacheTTLSearch time.Duration `env:"CACHE_TTL_SEARCH" envDefault:"2m"`
	CacheTTLFacets time.Duration `env:"CACHE_TTL_FACETS" envDefault:"5m"`
	CacheTTLDetail time.Duration `env:"CACHE_TTL_DETAIL" envDefault:"10m"`

	// Local cache fallback capacity (entries)
	LocalCacheSize int `env:"LOCAL_CACHE_SIZE" envDefault:"1024"`

	// Invalidation
	InvalidateDebounce time.Duration `env:"INVALIDATE_DEBOUNCE" envDefault:"5s"`
	InvalidateDedupe   time.Duration `env:"INVALIDATE_DEDUPE" envDefault:"2s"`

	// Kafka (optional; disable to rely on the admin endpoints alone)
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-service"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SnapshotStore != "postgres" && c.SnapshotStore != "memory" {
		return fmt.Errorf("invalid snapshot store: %q (want postgres or memory)", c.SnapshotStore)
	}
	if c.PlanTimeout <= 0 {
		return fmt.Errorf("PLAN_TIMEOUT must be positive: %s", c.PlanTimeout)
	}
	if c.LocalCacheSize < 1 {
		return fmt.Errorf("LOCAL_CACHE_SIZE must be positive: %d", c.LocalCacheSize)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}

// Postgres assembles the pool configuration for the primary database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// Redis assembles the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
