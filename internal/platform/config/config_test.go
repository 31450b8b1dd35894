package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(BackendMemory, cfg.Backend)
	s.Equal(":8080", cfg.Server.Addr)
	s.Equal(10*time.Second, cfg.Server.ShutdownTimeout)
	s.Equal("casework.audit", cfg.Kafka.TopicPrefix)
	s.Empty(cfg.Kafka.Brokers)
	s.Empty(cfg.Redis.URL)
	s.InDelta(1.0, cfg.Audit.OpsSampleRate, 0.0001)
	s.True(cfg.Limits.Enabled)
	s.Equal(60, cfg.Limits.RestrictedReadsPerMinute)
}

func (s *ConfigSuite) TestOverrides() {
	t := s.T()
	t.Setenv("CASEWORK_STORE_BACKEND", "postgres")
	t.Setenv("CASEWORK_POSTGRES_DSN", "postgres://casework@localhost/casework")
	t.Setenv("CASEWORK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CASEWORK_REDIS_READ_TIMEOUT", "750ms")
	t.Setenv("CASEWORK_LOG_FORMAT", "text")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(BackendPostgres, cfg.Backend)
	s.Equal([]string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	s.Equal(750*time.Millisecond, cfg.Redis.ReadTimeout)
	s.Equal("text", cfg.Log.Format)
}

func (s *ConfigSuite) TestValidate() {
	s.Run("postgres backend needs a dsn", func() {
		cfg := Config{Backend: BackendPostgres}
		s.ErrorContains(cfg.Validate(), "POSTGRES_DSN")
	})

	s.Run("unknown backend", func() {
		cfg := Config{Backend: "sqlite"}
		s.ErrorContains(cfg.Validate(), "unknown store backend")
	})

	s.Run("relay needs the outbox", func() {
		cfg := Config{Backend: BackendMemory, Kafka: KafkaConfig{Brokers: []string{"k:9092"}}}
		s.ErrorContains(cfg.Validate(), "outbox")
	})

	s.Run("production refuses the development key", func() {
		cfg := Config{Environment: "production", Backend: BackendMemory, Auth: Auth{SigningKey: "dev-secret-key-change-in-production"}}
		s.ErrorContains(cfg.Validate(), "JWT_SIGNING_KEY")
	})

	s.Run("seal job actor must be a uuid", func() {
		cfg := Config{Backend: BackendMemory, Seals: Seals{SystemActorID: "scheduler"}}
		s.ErrorContains(cfg.Validate(), "seal job actor")
	})

	s.Run("enabled rate limits must be positive", func() {
		cfg := Config{Backend: BackendMemory, Seals: Seals{SystemActorID: uuid.NewString()}, Limits: RateLimit{Enabled: true}}
		s.ErrorContains(cfg.Validate(), "rate limits")
	})
}
