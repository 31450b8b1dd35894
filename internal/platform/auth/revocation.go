package auth

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	dErrors "casework/pkg/domain-errors"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "casework_is_token_revoked_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedTokenKeyPrefix = "trl:jti:"

// RevocationList is a Redis-backed token revocation list shared by every
// instance. Entries expire with the token they revoke.
type RevocationList struct {
	client redis.UniversalClient
	prefix string
}

// NewRevocationList constructs a revocation list. keyPrefix namespaces the
// keys alongside the read models.
func NewRevocationList(client redis.UniversalClient, keyPrefix string) *RevocationList {
	return &RevocationList{client: client, prefix: keyPrefix}
}

func (l *RevocationList) key(jti string) string {
	if l.prefix == "" {
		return revokedTokenKeyPrefix + jti
	}
	return l.prefix + ":" + revokedTokenKeyPrefix + jti
}

// Revoke marks jti revoked for ttl.
func (l *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeValidation, "jti is required")
	}
	if ttl <= 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl must be positive")
	}
	return l.client.Set(ctx, l.key(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti is on the list. Tokens without a jti
// are never revoked.
func (l *RevocationList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	err := l.client.Get(ctx, l.key(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
