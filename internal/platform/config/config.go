// Package config reads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	liststr "rwaledger/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	GenesisFile   string
	Log           Log
	RateLimit     RateLimit
	Database      Database
	Redis         RedisConfig
	Kafka         Kafka
	Journal       Journal
}

type Log struct {
	Format string // "json" or "text"
	Level  string
}

type RateLimit struct {
	Disabled  bool
	PerSecond float64
	Burst     int
}

type Database struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig configures the shared revocation list. An empty URL selects
// the in-process list.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the outbox relay. It only runs when Database.URL is set too.
type Kafka struct {
	Brokers       []string
	Topic         string
	Partitions    int32
	Replication   int16
	RelayInterval time.Duration
	RelayBatch    int
	// Consecutive produce failures before the relay backs off, and how long
	// it waits between attempts while backed off.
	BreakerFailures int
	BreakerCooldown time.Duration
}

type Journal struct {
	BufferSize    int
	FlushInterval time.Duration
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("LEDGER_ADDR", ":8080"),
		AdminToken:    os.Getenv("LEDGER_ADMIN_TOKEN"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", devSigningKey),
		JWTIssuer:     envOr("JWT_ISSUER", "rwaledger"),
		JWTAudience:   envOr("JWT_AUDIENCE", "rwaledger-api"),
		GenesisFile:   envOr("GENESIS_FILE", "genesis.yaml"),
		Log: Log{
			Format: envOr("LOG_FORMAT", "json"),
			Level:  envOr("LOG_LEVEL", "info"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: Kafka{
			Topic: envOr("KAFKA_TOPIC", "rwaledger.audit"),
		},
	}
	cfg.Kafka.Brokers = liststr.SplitList(os.Getenv("KAFKA_BROKERS"))

	p := parser{}
	cfg.RateLimit.Disabled = p.bool("RATE_LIMIT_DISABLED", false)
	cfg.RateLimit.PerSecond = p.float("RATE_LIMIT_RPS", 20)
	cfg.RateLimit.Burst = p.int("RATE_LIMIT_BURST", 40)
	cfg.Database.MaxOpenConns = p.int("DATABASE_MAX_OPEN_CONNS", 10)
	cfg.Redis.PoolSize = p.int("REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = p.int("REDIS_MIN_IDLE_CONNS", 2)
	cfg.Redis.DialTimeout = p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = p.duration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.Kafka.Partitions = int32(p.int("KAFKA_TOPIC_PARTITIONS", 1))
	cfg.Kafka.Replication = int16(p.int("KAFKA_TOPIC_REPLICATION", 1))
	cfg.Kafka.RelayInterval = p.duration("KAFKA_RELAY_INTERVAL", time.Second)
	cfg.Kafka.RelayBatch = p.int("KAFKA_RELAY_BATCH", 100)
	cfg.Kafka.BreakerFailures = p.int("KAFKA_BREAKER_FAILURES", 5)
	cfg.Kafka.BreakerCooldown = p.duration("KAFKA_BREAKER_COOLDOWN", 30*time.Second)
	cfg.Journal.BufferSize = p.int("JOURNAL_BUFFER_SIZE", 4096)
	cfg.Journal.FlushInterval = p.duration("JOURNAL_FLUSH_INTERVAL", 250*time.Millisecond)
	if p.err != nil {
		return Server{}, p.err
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (s Server) Validate() error {
	if s.RateLimit.PerSecond <= 0 || s.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if len(s.Kafka.Brokers) > 0 && s.Database.URL == "" {
		return fmt.Errorf("KAFKA_BROKERS requires DATABASE_URL for the audit outbox")
	}
	if s.Journal.BufferSize <= 0 {
		return fmt.Errorf("JOURNAL_BUFFER_SIZE must be positive")
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", s.Log.Format)
	}
	return nil
}

// UsesDevSigningKey reports whether tokens are signed with the built-in key.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser keeps the first conversion error so FromEnv reads linearly.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, raw, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}
