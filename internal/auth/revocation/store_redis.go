package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"rwaledger/pkg/platform/sentinel"
)

const defaultRedisPrefix = "rwaledger:trl:jti:"

var redisLookupSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "rwaledger_revocation_lookup_seconds",
	Help:    "Latency of Redis revocation list lookups.",
	Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
})

// RedisTRL is a revocation list shared by every server instance. An entry is
// a key that expires together with the token it revokes.
type RedisTRL struct {
	client *redis.Client
	prefix string
}

type RedisTRLOption func(*RedisTRL)

// WithKeyPrefix namespaces the keys, e.g. per deployment on a shared Redis.
func WithKeyPrefix(prefix string) RedisTRLOption {
	return func(t *RedisTRL) {
		if prefix != "" {
			t.prefix = prefix
		}
	}
}

func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	t := &RedisTRL{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	if err := t.client.Set(ctx, t.prefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	timer := prometheus.NewTimer(redisLookupSeconds)
	n, err := t.client.Exists(ctx, t.prefix+jti).Result()
	timer.ObserveDuration()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w: %w", sentinel.ErrUnavailable, err)
	}
	return n > 0, nil
}
