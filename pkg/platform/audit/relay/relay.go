// Package relay publishes audit outbox rows to Kafka.
//
// Rows are claimed with FOR UPDATE SKIP LOCKED so several relays can run
// against one database. A batch is marked published only after the broker
// acknowledged every record; on failure the batch stays pending and is retried
// on the next tick, which gives at-least-once delivery keyed by holder address.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"rwaledger/pkg/platform/circuit"
	txcontext "rwaledger/pkg/platform/tx"
)

const (
	defaultBatchSize = 200
	defaultInterval  = time.Second
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay moves outbox rows to a Kafka topic.
type Relay struct {
	db        *sql.DB
	producer  Producer
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	breaker   *circuit.Breaker
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBreaker stops draining while the broker keeps failing; an open breaker
// lets one batch through per cooldown as a trial.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

func New(db *sql.DB, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		producer:  producer,
		topic:     topic,
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		if r.breaker != nil && !r.breaker.Allow() {
			return
		}
		n, err := r.RelayOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
			r.recordFailure(ctx)
			return
		}
		if !r.recordSuccess(ctx) || n < r.batchSize {
			return
		}
	}
}

func (r *Relay) recordFailure(ctx context.Context) {
	if r.breaker == nil {
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "outbox relay circuit opened", "breaker", r.breaker.Name(), "topic", r.topic)
	}
}

// recordSuccess reports whether the relay may keep draining.
func (r *Relay) recordSuccess(ctx context.Context) bool {
	if r.breaker == nil {
		return true
	}
	usePrimary, change := r.breaker.RecordSuccess()
	if change.Closed {
		r.logger.InfoContext(ctx, "outbox relay circuit closed", "breaker", r.breaker.Name(), "topic", r.topic)
	}
	return usePrimary
}

type outboxRow struct {
	id          string
	aggregateID string
	eventType   string
	payload     []byte
}

// RelayOnce publishes one batch and returns how many rows it published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := txcontext.Run(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		batch, err := claim(ctx, tx, r.batchSize)
		if err != nil || len(batch) == 0 {
			return err
		}

		records := make([]*kgo.Record, 0, len(batch))
		ids := make([]string, 0, len(batch))
		for _, row := range batch {
			records = append(records, &kgo.Record{
				Topic: r.topic,
				Key:   []byte(row.aggregateID),
				Value: row.payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(row.eventType)},
					{Key: "outbox_id", Value: []byte(row.id)},
				},
			})
			ids = append(ids, row.id)
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox batch: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			time.Now(), pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.logger.DebugContext(ctx, "relayed outbox batch", "count", published, "topic", r.topic)
	}
	return published, nil
}

func claim(ctx context.Context, tx *sql.Tx, limit int) ([]outboxRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox rows: %w", err)
	}
	defer rows.Close()

	var batch []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.aggregateID, &row.eventType, &row.payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return batch, nil
}

// EnsureTopic creates topic if it does not already exist.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replication int16) error {
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
