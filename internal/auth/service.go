// Package auth issues and revokes the bearer tokens that bind HTTP callers
// to ledger addresses.
package auth

import (
	"context"
	"log/slog"
	"time"

	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// RevocationList records revoked token IDs until the token would have expired anyway.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const (
	DefaultTokenTTL = 24 * time.Hour
	MaxTokenTTL     = 30 * 24 * time.Hour
)

type Service struct {
	jwt    *JWTService
	trl    RevocationList
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(jwt *JWTService, trl RevocationList, opts ...Option) (*Service, error) {
	if jwt == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "jwt service is required")
	}
	if trl == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "revocation list is required")
	}
	s := &Service{
		jwt:    jwt,
		trl:    trl,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a token for subject. A zero ttl selects DefaultTokenTTL.
func (s *Service) Issue(ctx context.Context, subject domain.Address, label string, ttl time.Duration) (IssuedToken, error) {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if ttl > MaxTokenTTL {
		return IssuedToken{}, dErrors.New(dErrors.CodeInvalidInput, "token ttl exceeds maximum")
	}
	issued, err := s.jwt.IssueToken(subject, label, ttl)
	if err != nil {
		return IssuedToken{}, err
	}
	s.logger.InfoContext(ctx, "access token issued",
		"subject", subject.Hex(),
		"jti", issued.JTI,
		"label", label,
		"expires_at", issued.ExpiresAt,
	)
	return issued, nil
}

// Revoke revokes a token presented in full. Already expired tokens are
// rejected since they can no longer authenticate.
func (s *Service) Revoke(ctx context.Context, token string) (string, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return "", err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	}
	if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "access token revoked",
		"subject", claims.Subject,
		"jti", claims.ID,
	)
	return claims.ID, nil
}

// IsTokenRevoked satisfies the auth middleware's revocation checker.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}
