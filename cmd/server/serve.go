package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"rwaledger/internal/auth"
	"rwaledger/internal/auth/revocation"
	complianceMetrics "rwaledger/internal/compliance/metrics"
	"rwaledger/internal/core"
	"rwaledger/internal/genesis"
	ledgerMetrics "rwaledger/internal/ledger/metrics"
	"rwaledger/internal/platform/config"
	"rwaledger/internal/platform/httpserver"
	"rwaledger/internal/platform/kafka"
	"rwaledger/internal/platform/logger"
	"rwaledger/internal/platform/metrics"
	"rwaledger/internal/platform/postgres"
	platformredis "rwaledger/internal/platform/redis"
	httptransport "rwaledger/internal/transport/http"
	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/platform/audit/publisher"
	"rwaledger/pkg/platform/audit/relay"
	"rwaledger/pkg/platform/audit/store/memory"
	auditpostgres "rwaledger/pkg/platform/audit/store/postgres"
	"rwaledger/pkg/platform/circuit"
	"rwaledger/pkg/platform/middleware/ratelimit"
)

const (
	rateLimitSweepInterval = time.Minute
	rateLimitIdle          = 10 * time.Minute
	revocationPurgeEvery   = 15 * time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		Long: `Run the ledger HTTP API.

Configuration is read from the environment. The ledger state is rebuilt from
the genesis file on every start; with DATABASE_URL set the audit journal is
persisted and continues its sequence across restarts, and with KAFKA_BROKERS
set journal entries are relayed to Kafka through the outbox. Relative
expires_in and release_in offsets are measured from genesis_time when the
file sets it, and from the start time otherwise.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY")
	}

	gen, err := genesis.Load(cfg.GenesisFile, time.Now())
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	store, startSeq, err := openJournalStore(ctx, db)
	if err != nil {
		return err
	}
	pub := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Journal.BufferSize),
		publisher.WithFlushInterval(cfg.Journal.FlushInterval),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)
	defer pub.Close()

	c, err := core.New(gen.Config,
		core.WithLogger(log),
		core.WithJournal(pub),
		core.WithMetrics(complianceMetrics.New(), ledgerMetrics.New()),
		core.WithStartSequence(startSeq),
	)
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	if err := gen.Apply(ctx, c); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	log.InfoContext(ctx, "genesis applied",
		"file", cfg.GenesisFile,
		"genesis_time", time.Unix(gen.Time, 0).UTC(),
		"symbol", c.Metadata().Symbol,
		"total_supply", c.TotalSupply().String(),
		"sequence", c.Sequence(),
	)

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}
	trl, purge, err := openRevocationList(ctx, rc, db)
	if err != nil {
		return err
	}

	jwtSvc := auth.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	tokens, err := auth.New(jwtSvc, trl, auth.WithLogger(log))
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)
	handler := httptransport.New(c, pub, tokens, log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Validator:   auth.NewMiddlewareValidator(jwtSvc),
		Revocations: tokens,
		AdminToken:  cfg.AdminToken,
		RateLimit:   limiter,
		Metrics:     metrics.New(),
		Logger:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Addr, router), log)
	})
	g.Go(func() error {
		every(gctx, rateLimitSweepInterval, func() {
			if n := limiter.Sweep(rateLimitIdle); n > 0 {
				log.DebugContext(gctx, "rate limit buckets evicted", "count", n)
			}
		})
		return nil
	})
	if purge != nil {
		g.Go(func() error {
			every(gctx, revocationPurgeEvery, func() {
				if n, err := purge(gctx); err != nil {
					log.WarnContext(gctx, "revocation purge failed", "error", err)
				} else if n > 0 {
					log.DebugContext(gctx, "expired revocations purged", "count", n)
				}
			})
			return nil
		})
	}

	kc, err := kafka.NewClient(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	if kc != nil {
		defer kc.Close()
		if db == nil {
			log.Warn("KAFKA_BROKERS set without DATABASE_URL; audit relay disabled")
		} else {
			rel, err := newRelay(ctx, cfg.Kafka, db, kc, log)
			if err != nil {
				return err
			}
			g.Go(func() error { return rel.Run(gctx) })
		}
	}

	return g.Wait()
}

// openJournalStore selects the Postgres journal when a database is configured
// and returns the last persisted sequence so numbering continues.
func openJournalStore(ctx context.Context, db *sql.DB) (audit.Store, uint64, error) {
	if db == nil {
		return memory.NewInMemoryStore(), 0, nil
	}
	store := auditpostgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, 0, err
	}
	seq, err := store.LastSequence(ctx)
	if err != nil {
		return nil, 0, err
	}
	return store, seq, nil
}

// openRevocationList prefers Redis, then Postgres, then process memory. The
// returned purge func is non-nil only for stores that need periodic cleanup.
func openRevocationList(ctx context.Context, rc *platformredis.Client, db *sql.DB) (auth.RevocationList, func(context.Context) (int64, error), error) {
	switch {
	case rc != nil:
		return revocation.NewRedisTRL(rc.Client), nil, nil
	case db != nil:
		trl := revocation.NewPostgresTRL(db)
		if err := trl.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return trl, trl.PurgeExpired, nil
	default:
		return revocation.NewInMemoryTRL(), nil, nil
	}
}

func newRelay(ctx context.Context, cfg config.Kafka, db *sql.DB, kc *kgo.Client, log *slog.Logger) (*relay.Relay, error) {
	if err := relay.EnsureTopic(ctx, kadm.NewClient(kc), cfg.Topic, cfg.Partitions, cfg.Replication); err != nil {
		return nil, err
	}
	return relay.New(db, kc, cfg.Topic,
		relay.WithLogger(log),
		relay.WithBatchSize(cfg.RelayBatch),
		relay.WithInterval(cfg.RelayInterval),
		relay.WithBreaker(circuit.New("kafka-relay",
			circuit.WithFailureThreshold(cfg.BreakerFailures),
			circuit.WithCooldown(cfg.BreakerCooldown),
		)),
	), nil
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
