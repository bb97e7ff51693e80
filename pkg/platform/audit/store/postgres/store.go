package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	audit "rwaledger/pkg/platform/audit"
	txcontext "rwaledger/pkg/platform/tx"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schema string

// Store implements audit.Store on PostgreSQL. Each event is written to the
// queryable audit_events table and to the outbox in one transaction; the
// outbox relay publishes outbox rows to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OutboxPayload is the JSON structure published to Kafka.
type OutboxPayload struct {
	ID           string `json:"id"`
	Sequence     uint64 `json:"sequence"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	LedgerTime   int64  `json:"ledger_time"`
	Action       string `json:"action"`
	Caller       string `json:"caller,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Role         string `json:"role,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Decision     string `json:"decision,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	Client       string `json:"client,omitempty"`
}

func newPayload(eventID uuid.UUID, event audit.Event) OutboxPayload {
	return OutboxPayload{
		ID:           eventID.String(),
		Sequence:     event.Sequence,
		Category:     string(audit.AuditEvent(event.Action).Category()),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		LedgerTime:   event.LedgerTime,
		Action:       event.Action,
		Caller:       event.Caller,
		Subject:      event.Subject,
		Counterparty: event.Counterparty,
		Amount:       event.Amount,
		Role:         event.Role,
		Detail:       event.Detail,
		Decision:     event.Decision,
		Reason:       event.Reason,
		RequestID:    event.RequestID,
		Client:       event.Client,
	}
}

// Append writes the event and its outbox entry. When ctx carries a transaction
// both writes join it; otherwise Append opens its own.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if tx, ok := txcontext.From(ctx); ok {
		return s.appendWith(ctx, tx, event)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	if err := s.appendWith(ctx, tx, event); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *Store) appendWith(ctx context.Context, exec dbExecutor, event audit.Event) error {
	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	_, err := exec.ExecContext(ctx, `
		INSERT INTO audit_events (
			sequence, category, timestamp, ledger_time, action,
			caller, subject, counterparty, amount, role,
			detail, decision, reason, request_id, client
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (sequence) DO NOTHING
	`,
		int64(event.Sequence),
		string(category),
		event.Timestamp,
		event.LedgerTime,
		event.Action,
		event.Caller,
		event.Subject,
		event.Counterparty,
		event.Amount,
		event.Role,
		event.Detail,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.Client,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	eventID := uuid.New()
	payloadBytes, err := json.Marshal(newPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Determine aggregate type and ID
	aggregateType := "ledger"
	aggregateID := strconv.FormatUint(event.Sequence, 10)
	if event.Subject != "" {
		aggregateType = "holder"
		aggregateID = event.Subject
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT sequence, category, timestamp, ledger_time, action,
		   caller, subject, counterparty, amount, role,
		   detail, decision, reason, request_id, client
	FROM audit_events
`

// ListBySubject returns events touching address in sequence order.
func (s *Store) ListBySubject(ctx context.Context, address string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+`
		WHERE subject = $1 OR counterparty = $1 OR caller = $1
		ORDER BY sequence ASC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the newest limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (`+selectEvents+`
			ORDER BY sequence DESC
			LIMIT $1
		) recent
		ORDER BY sequence ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LastSequence returns the highest stored sequence, or zero when empty.
func (s *Store) LastSequence(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM audit_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// scanEvents scans multiple rows into audit.Event slice.
func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := []audit.Event{}

	for rows.Next() {
		var (
			category string
			sequence int64
			event    audit.Event
		)

		err := rows.Scan(
			&sequence,
			&category,
			&event.Timestamp,
			&event.LedgerTime,
			&event.Action,
			&event.Caller,
			&event.Subject,
			&event.Counterparty,
			&event.Amount,
			&event.Role,
			&event.Detail,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.Client,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Sequence = uint64(sequence)
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
