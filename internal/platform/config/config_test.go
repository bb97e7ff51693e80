package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.UsesDevSigningKey())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, float64(20), cfg.RateLimit.PerSecond)
	assert.Equal(t, "rwaledger.audit", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Kafka.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Kafka.BreakerCooldown)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LEDGER_ADDR", ":9090")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("DATABASE_URL", "postgres://ledger@db/ledger")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
	t.Setenv("KAFKA_BREAKER_COOLDOWN", "1m")
	t.Setenv("KAFKA_RELAY_INTERVAL", "5s")
	t.Setenv("RATE_LIMIT_DISABLED", "true")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.False(t, cfg.UsesDevSigningKey())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Kafka.RelayInterval)
	assert.Equal(t, time.Minute, cfg.Kafka.BreakerCooldown)
	assert.True(t, cfg.RateLimit.Disabled)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "malformed number", env: map[string]string{"RATE_LIMIT_BURST": "lots"}},
		{name: "malformed duration", env: map[string]string{"KAFKA_RELAY_INTERVAL": "soon"}},
		{name: "kafka without database", env: map[string]string{"KAFKA_BROKERS": "k1:9092"}},
		{name: "unknown log format", env: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "zero rate", env: map[string]string{"RATE_LIMIT_RPS": "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
