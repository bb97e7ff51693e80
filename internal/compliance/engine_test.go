package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance/metrics"
	"rwaledger/internal/compliance/mocks"
	"rwaledger/internal/identity"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

var (
	admin    = domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	outsider = domain.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	holderA  = domain.MustParseAddress("0xf4a2d5e1a29A32F6336803B52fa349cED34dAD27")
	holderB  = domain.MustParseAddress("0x9c28162EB3D7ff34aC3EAca9F98CBd12d9F3CfE6")
)

const now int64 = 1_700_000_000

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	identities *mocks.MockIdentityReader
	metrics    *metrics.Metrics
	engine     *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.identities = mocks.NewMockIdentityReader(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())

	acl, err := accesscontrol.New(admin)
	s.Require().NoError(err)
	engine, err := NewEngine(s.identities, acl,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EngineSuite) givenIdentity(addr domain.Address, jurisdiction domain.Jurisdiction, role string) {
	s.identities.EXPECT().GetIdentity(addr).Return(identity.Identity{
		Address:      addr,
		Verified:     true,
		Jurisdiction: jurisdiction,
		Role:         domain.MustParseRoleTag(role),
		Expiry:       now + 365*24*3600,
	}).AnyTimes()
}

func (s *EngineSuite) allow(codes ...domain.Jurisdiction) {
	for _, code := range codes {
		s.Require().NoError(s.engine.AllowJurisdiction(s.ctx, admin, code, true))
	}
}

func (s *EngineSuite) TestNewEngine() {
	s.Run("identity reader is required", func() {
		_, err := NewEngine(nil, &accesscontrol.Service{})
		s.Error(err)
	})
	s.Run("authorizer is required", func() {
		_, err := NewEngine(s.identities, nil)
		s.Error(err)
	})
}

func (s *EngineSuite) TestRuleAdministrationIsAdminOnly() {
	tag := domain.MustParseRoleTag("PROFESSIONAL")
	for name, op := range map[string]func() error{
		"allow jurisdiction": func() error { return s.engine.AllowJurisdiction(s.ctx, outsider, 840, true) },
		"set lockup":         func() error { return s.engine.SetLockup(s.ctx, outsider, holderA, now+10, now) },
		"set required role":  func() error { return s.engine.SetRequiredRoleForRecipient(s.ctx, outsider, holderB, tag) },
	} {
		s.Run(name, func() {
			err := op()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		})
	}

	s.False(s.engine.IsJurisdictionAllowed(840))
	_, locked := s.engine.LockupOf(holderA)
	s.False(locked)
	_, gated := s.engine.RequiredRoleFor(holderB)
	s.False(gated)
}

func (s *EngineSuite) TestAuthorizerFailuresSurfaceAsForbidden() {
	authz := mocks.NewMockAuthorizer(s.ctrl)
	authz.EXPECT().RequireAnyRole(admin, accesscontrol.RoleAdmin).Return(errors.New("acl unavailable"))

	engine, err := NewEngine(s.identities, authz)
	s.Require().NoError(err)

	err = engine.AllowJurisdiction(s.ctx, admin, 840, true)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *EngineSuite) TestIdempotentToggles() {
	s.Run("allowing twice equals allowing once", func() {
		s.allow(840, 840)
		s.Equal([]domain.Jurisdiction{840}, s.engine.AllowedJurisdictions())

		s.Require().NoError(s.engine.AllowJurisdiction(s.ctx, admin, 840, false))
		s.Require().NoError(s.engine.AllowJurisdiction(s.ctx, admin, 840, false))
		s.Empty(s.engine.AllowedJurisdictions())
	})

	s.Run("lockup then zero clears", func() {
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, now+1000, now))
		release, ok := s.engine.LockupOf(holderA)
		s.True(ok)
		s.Equal(now+1000, release)

		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, 0, now))
		_, ok = s.engine.LockupOf(holderA)
		s.False(ok)
	})

	s.Run("release at now clears", func() {
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, now+1000, now))
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, now, now))
		_, ok := s.engine.LockupOf(holderA)
		s.False(ok)
	})

	s.Run("empty role clears gate", func() {
		s.Require().NoError(s.engine.SetRequiredRoleForRecipient(s.ctx, admin, holderB, domain.MustParseRoleTag("PROFESSIONAL")))
		role, ok := s.engine.RequiredRoleFor(holderB)
		s.True(ok)
		s.Equal("PROFESSIONAL", role.String())

		s.Require().NoError(s.engine.SetRequiredRoleForRecipient(s.ctx, admin, holderB, domain.RoleTag{}))
		_, ok = s.engine.RequiredRoleFor(holderB)
		s.False(ok)
	})
}

func (s *EngineSuite) TestCheckTransfer() {
	s.givenIdentity(holderA, 840, "ACCREDITED")
	s.givenIdentity(holderB, 276, "ACCREDITED")
	s.allow(840, 276)

	s.Run("allowed", func() {
		d := s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now)
		s.True(d.Allowed)
		s.Equal(ReasonAllowed, d.Reason)
		s.NoError(d.Err())
	})

	s.Run("locked sender is rejected until release", func() {
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, now+1000, now))

		d := s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now)
		s.False(d.Allowed)
		s.Equal(ReasonSenderLocked, d.Reason)

		s.Equal(ReasonAllowed, s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now+1000).Reason)
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, 0, now))
	})

	s.Run("locked recipient may still receive", func() {
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderB, now+1000, now))
		s.Equal(ReasonAllowed, s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now).Reason)
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderB, 0, now))
	})

	s.Run("recipient role gate", func() {
		s.Require().NoError(s.engine.SetRequiredRoleForRecipient(s.ctx, admin, holderB, domain.MustParseRoleTag("PROFESSIONAL")))
		d := s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now)
		s.Equal(ReasonRecipientRoleMismatch, d.Reason)

		err := d.Err()
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceRejected))
		reason, ok := ReasonOf(err)
		s.True(ok)
		s.Equal(ReasonRecipientRoleMismatch, reason)
		s.Require().NoError(s.engine.SetRequiredRoleForRecipient(s.ctx, admin, holderB, domain.RoleTag{}))
	})

	s.Run("jurisdiction removed from allowlist", func() {
		s.Require().NoError(s.engine.AllowJurisdiction(s.ctx, admin, 276, false))
		s.Equal(ReasonRecipientJurisdictionBlocked, s.engine.CheckTransfer(holderA, holderB, big.NewInt(10), now).Reason)
		s.Equal(ReasonSenderJurisdictionBlocked, s.engine.CheckTransfer(holderB, holderA, big.NewInt(10), now).Reason)
		s.allow(276)
	})

	s.Run("zero amount", func() {
		s.Equal(ReasonInvalidAmount, s.engine.CheckTransfer(holderA, holderB, big.NewInt(0), now).Reason)
	})

	s.Run("decisions are counted by reason", func() {
		s.GreaterOrEqual(testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("transfer", string(ReasonAllowed))), float64(1))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("transfer", string(ReasonSenderLocked))))
	})
}

func (s *EngineSuite) TestCheckTransfer_UnknownSender() {
	s.identities.EXPECT().GetIdentity(outsider).Return(identity.Identity{Address: outsider})
	s.givenIdentity(holderB, 276, "ACCREDITED")
	s.allow(276)

	s.Equal(ReasonSenderNotVerified, s.engine.CheckTransfer(outsider, holderB, big.NewInt(1), now).Reason)
}

func (s *EngineSuite) TestCheckMint() {
	s.givenIdentity(holderA, 840, "ACCREDITED")
	s.allow(840)

	s.Run("recipient checks only", func() {
		d := s.engine.CheckMint(holderA, big.NewInt(1000), now)
		s.True(d.Allowed)
	})

	s.Run("lockup on recipient does not block issuance", func() {
		s.Require().NoError(s.engine.SetLockup(s.ctx, admin, holderA, now+1000, now))
		s.Equal(ReasonAllowed, s.engine.CheckMint(holderA, big.NewInt(1000), now).Reason)
	})

	s.Run("recipient jurisdiction still applies", func() {
		s.Require().NoError(s.engine.AllowJurisdiction(s.ctx, admin, 840, false))
		s.Equal(ReasonRecipientJurisdictionBlocked, s.engine.CheckMint(holderA, big.NewInt(1000), now).Reason)
	})
}

func (s *EngineSuite) TestRecipientLockupExtension() {
	acl, err := accesscontrol.New(admin)
	s.Require().NoError(err)
	engine, err := NewEngine(s.identities, acl, WithRecipientLockup(true))
	s.Require().NoError(err)

	s.givenIdentity(holderA, 840, "ACCREDITED")
	s.givenIdentity(holderB, 840, "ACCREDITED")
	s.Require().NoError(engine.AllowJurisdiction(s.ctx, admin, 840, true))
	s.Require().NoError(engine.SetLockup(s.ctx, admin, holderB, now+1000, now))

	s.Equal(ReasonRecipientLocked, engine.CheckTransfer(holderA, holderB, big.NewInt(1), now).Reason)
	s.Equal(ReasonRecipientLocked, engine.CheckMint(holderB, big.NewInt(1), now).Reason)
}
