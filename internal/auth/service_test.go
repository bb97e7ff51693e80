package auth

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rwaledger/internal/auth/revocation"
	dErrors "rwaledger/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	trl     *revocation.InMemoryTRL
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.trl = revocation.NewInMemoryTRL()
	svc, err := New(
		NewJWTService("test-signing-key", "rwaledger", "rwaledger-api"),
		s.trl,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TestIssue() {
	s.Run("zero ttl uses default", func() {
		issued, err := s.service.Issue(s.ctx, operator, "", 0)
		s.Require().NoError(err)
		s.WithinDuration(time.Now().Add(DefaultTokenTTL), issued.ExpiresAt, time.Minute)
	})

	s.Run("ttl above maximum is rejected", func() {
		_, err := s.service.Issue(s.ctx, operator, "", MaxTokenTTL+time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestRevoke() {
	issued, err := s.service.Issue(s.ctx, operator, "ops", time.Hour)
	s.Require().NoError(err)

	revoked, err := s.service.IsTokenRevoked(s.ctx, issued.JTI)
	s.Require().NoError(err)
	s.False(revoked)

	jti, err := s.service.Revoke(s.ctx, issued.Token)
	s.Require().NoError(err)
	s.Equal(issued.JTI, jti)

	revoked, err = s.service.IsTokenRevoked(s.ctx, issued.JTI)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *ServiceSuite) TestRevoke_InvalidToken() {
	_, err := s.service.Revoke(s.ctx, "garbage")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal(0, s.trl.Len())
}

func (s *ServiceSuite) TestNew_RequiresDependencies() {
	_, err := New(nil, s.trl)
	s.Error(err)
	_, err = New(NewJWTService("k", "i", "a"), nil)
	s.Error(err)
}
