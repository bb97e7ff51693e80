package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rwaledger/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_revocations (
	jti        TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS token_revocations_expires_at_idx ON token_revocations (expires_at);
`

// PostgresTRL persists revoked token JTIs in PostgreSQL. Used when no Redis
// is configured but the audit database is.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *PostgresTRL) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create token_revocations: %w", err)
	}
	return nil
}

// RevokeToken adds a token to the revocation list with TTL.
func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	// A repeated revocation never shortens an existing one.
	if _, err := t.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE
		SET expires_at = GREATEST(token_revocations.expires_at, EXCLUDED.expires_at)
	`, jti, t.clock().Add(ttl)); err != nil {
		return fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var revoked bool
	err := t.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_revocations WHERE jti = $1 AND expires_at > $2)`,
		jti, t.clock(),
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w: %w", sentinel.ErrUnavailable, err)
	}
	return revoked, nil
}

// PurgeExpired deletes entries whose tokens can no longer authenticate.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at <= $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge token revocations: %w", err)
	}
	return res.RowsAffected()
}
