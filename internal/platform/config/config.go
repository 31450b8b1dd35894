// Package config loads process configuration from CASEWORK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

const envPrefix = "CASEWORK_"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// Backend selects the event and audit store: memory or postgres.
	Backend string `env:"STORE_BACKEND" envDefault:"memory"`

	Server   Server         `envPrefix:"SERVER_"`
	Log      Log            `envPrefix:"LOG_"`
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Outbox   Outbox         `envPrefix:"OUTBOX_"`
	Auth     Auth           `envPrefix:"AUTH_"`
	Audit    Audit          `envPrefix:"AUDIT_"`
	Seals    Seals          `envPrefix:"SEALS_"`
	Limits   RateLimit      `envPrefix:"RATE_LIMIT_"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type PostgresConfig struct {
	DSN      string `env:"DSN"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
	Migrate  bool   `env:"MIGRATE" envDefault:"true"`
}

// RedisConfig configures the read-model client. An empty URL disables the
// read models.
type RedisConfig struct {
	URL          string        `env:"URL"`
	KeyPrefix    string        `env:"KEY_PREFIX" envDefault:"casework"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the audit relay. No brokers disables the outbox
// worker and the audit consumer.
type KafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:","`
	TopicPrefix   string   `env:"TOPIC_PREFIX" envDefault:"casework.audit"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"casework-audit-materializer"`
	Partitions    int32    `env:"PARTITIONS" envDefault:"3"`
	Replication   int16    `env:"REPLICATION" envDefault:"1"`
}

type Outbox struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"1s"`
	BatchSize int           `env:"BATCH_SIZE" envDefault:"100"`
}

// Auth configures bearer token validation.
type Auth struct {
	SigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string `env:"JWT_ISSUER" envDefault:"casework"`
	Audience   string `env:"JWT_AUDIENCE" envDefault:"casework-api"`
}

type Audit struct {
	// OpsSampleRate is the fraction of operational events kept.
	OpsSampleRate      float64       `env:"OPS_SAMPLE_RATE" envDefault:"1.0"`
	SecurityBuffer     int           `env:"SECURITY_BUFFER" envDefault:"10000"`
	SecurityFlushEvery time.Duration `env:"SECURITY_FLUSH_INTERVAL" envDefault:"500ms"`
}

// Seals configures the temporary seal expiry job. A zero interval disables
// it. SystemActorID is the actor the job records on SealExpired events.
type Seals struct {
	ExpiryInterval time.Duration `env:"EXPIRY_INTERVAL" envDefault:"1m"`
	SystemActorID  string        `env:"SYSTEM_ACTOR_ID" envDefault:"00000000-0000-0000-0000-000000000001"`
}

// RateLimit configures per-actor request limits, counted per minute.
type RateLimit struct {
	Enabled                  bool `env:"ENABLED" envDefault:"true"`
	RestrictedReadsPerMinute int  `env:"RESTRICTED_READS_PER_MINUTE" envDefault:"60"`
	ReadsPerMinute           int  `env:"READS_PER_MINUTE" envDefault:"300"`
	WritesPerMinute          int  `env:"WRITES_PER_MINUTE" envDefault:"120"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("CASEWORK_POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Backend))
	}
	if len(c.Kafka.Brokers) > 0 && c.Backend != BackendPostgres {
		errs = append(errs, errors.New("the audit relay needs the postgres backend for its outbox"))
	}
	if c.IsProduction() && strings.HasPrefix(c.Auth.SigningKey, "dev-") {
		errs = append(errs, errors.New("CASEWORK_AUTH_JWT_SIGNING_KEY must be set in production"))
	}
	if _, err := uuid.Parse(c.Seals.SystemActorID); err != nil {
		errs = append(errs, fmt.Errorf("invalid seal job actor id: %w", err))
	}
	if c.Limits.Enabled && (c.Limits.RestrictedReadsPerMinute <= 0 || c.Limits.ReadsPerMinute <= 0 || c.Limits.WritesPerMinute <= 0) {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.Audit.OpsSampleRate < 0 || c.Audit.OpsSampleRate > 1 {
		errs = append(errs, fmt.Errorf("audit ops sample rate %v outside [0,1]", c.Audit.OpsSampleRate))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
