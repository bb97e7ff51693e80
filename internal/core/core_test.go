package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance"
	"rwaledger/internal/identity"
	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/platform/audit/publisher"
	"rwaledger/pkg/platform/audit/store/memory"
	"rwaledger/pkg/requestcontext"
)

var (
	admin    = domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	agent    = domain.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	outsider = domain.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	holderA  = domain.MustParseAddress("0xf4a2d5e1a29A32F6336803B52fa349cED34dAD27")
	holderB  = domain.MustParseAddress("0x9c28162EB3D7ff34aC3EAca9F98CBd12d9F3CfE6")
)

const (
	now      int64 = 1_700_000_000
	farFuture      = now + 10*365*24*3600
)

type CoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.InMemoryStore
	core  *Core
}

func TestCoreSuite(t *testing.T) {
	suite.Run(t, new(CoreSuite))
}

func (s *CoreSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
	s.store = memory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.store)
	s.T().Cleanup(pub.Close)

	c, err := New(Config{
		Admin:    admin,
		Metadata: ledger.Metadata{Name: "Acme RWA Fund", Symbol: "ARF", Decimals: 18},
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithJournal(pub),
	)
	s.Require().NoError(err)
	s.core = c
}

// deploy mirrors the standard bootstrap: agent role, allowlist, two investors.
func (s *CoreSuite) deploy() {
	s.Require().NoError(s.core.GrantRole(s.ctx, admin, accesscontrol.RoleTransferAgent, agent))
	for _, code := range []domain.Jurisdiction{840, 276, 250, 156} {
		s.Require().NoError(s.core.AllowJurisdiction(s.ctx, admin, code, true))
	}
	s.setIdentity(holderA, 840, "ACCREDITED")
	s.setIdentity(holderB, 840, "ACCREDITED")
}

func (s *CoreSuite) setIdentity(addr domain.Address, code domain.Jurisdiction, role string) {
	s.Require().NoError(s.core.SetIdentity(s.ctx, admin, identity.Identity{
		Address:      addr,
		Verified:     true,
		Jurisdiction: code,
		Role:         domain.MustParseRoleTag(role),
		Expiry:       farFuture,
	}))
}

func (s *CoreSuite) journal() []audit.Event {
	events, err := s.store.ListRecent(s.ctx, 1_000_000)
	s.Require().NoError(err)
	return events
}

func (s *CoreSuite) TestNew() {
	_, err := New(Config{})
	s.Error(err, "a genesis admin is required")

	s.True(s.core.HasRole(accesscontrol.RoleAdmin, admin))
	s.Equal(ledger.DefaultPolicy(), s.core.Policy())
	s.Equal("ARF", s.core.Metadata().Symbol)
}

func (s *CoreSuite) TestMintToVerifiedHolder() {
	s.deploy()

	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))
	s.Equal(int64(1000), s.core.BalanceOf(holderA).Int64())
	s.Equal(int64(1000), s.core.TotalSupply().Int64())
}

func (s *CoreSuite) TestLockedSenderTransferFails() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))
	s.Require().NoError(s.core.SetLockup(s.ctx, admin, holderA, now+1000, now))

	d := s.core.CheckTransfer(s.ctx, holderA, holderB, big.NewInt(10), now)
	s.Equal(compliance.ReasonSenderLocked, d.Reason)

	err := s.core.Transfer(s.ctx, holderA, holderA, holderB, big.NewInt(10), now)
	s.True(dErrors.HasCode(err, dErrors.CodeComplianceRejected))
	s.Equal(int64(1000), s.core.BalanceOf(holderA).Int64())
	s.Zero(s.core.BalanceOf(holderB).Sign())
}

func (s *CoreSuite) TestRecipientRoleMismatch() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))
	s.Require().NoError(s.core.SetRequiredRoleForRecipient(s.ctx, admin, holderB, domain.MustParseRoleTag("PROFESSIONAL")))

	err := s.core.Transfer(s.ctx, holderA, holderA, holderB, big.NewInt(10), now)
	reason, ok := compliance.ReasonOf(err)
	s.True(ok)
	s.Equal(compliance.ReasonRecipientRoleMismatch, reason)

	role, gated := s.core.RequiredRoleFor(holderB)
	s.True(gated)
	s.Equal("PROFESSIONAL", role.String())
}

func (s *CoreSuite) TestExpiredIdentityBlocksTransfer() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))

	// Revocation is an overwrite with an expiry in the past.
	s.Require().NoError(s.core.SetIdentity(s.ctx, admin, identity.Identity{
		Address:      holderA,
		Verified:     true,
		Jurisdiction: 840,
		Role:         domain.MustParseRoleTag("ACCREDITED"),
		Expiry:       now - 1,
	}))
	s.False(s.core.IsCurrentlyVerified(holderA, now))

	err := s.core.Transfer(s.ctx, holderA, holderA, holderB, big.NewInt(10), now)
	reason, _ := compliance.ReasonOf(err)
	s.Equal(compliance.ReasonSenderNotVerified, reason)
}

func (s *CoreSuite) TestNonMinterCannotMint() {
	s.deploy()

	err := s.core.Mint(s.ctx, outsider, holderA, big.NewInt(1000), now)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Zero(s.core.TotalSupply().Sign())
}

func (s *CoreSuite) TestJournal() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))
	s.Require().Error(s.core.Mint(s.ctx, outsider, holderA, big.NewInt(1), now))
	s.Require().NoError(s.core.Transfer(s.ctx, holderA, holderA, holderB, big.NewInt(25), now))

	events := s.journal()
	// grant + 4 jurisdictions + 2 identities + 2 mints + 1 transfer
	s.Require().Len(events, 10)
	s.Equal(uint64(10), s.core.Sequence())

	for i, e := range events {
		s.Equal(uint64(i+1), e.Sequence, "sequence numbers are dense and ordered")
		s.Equal("req-1", e.RequestID)
	}

	rejected := events[8]
	s.Equal(string(audit.EventMinted), rejected.Action)
	s.Equal(audit.DecisionRejected, rejected.Decision)
	s.Equal(string(dErrors.CodeForbidden), rejected.Reason)
	s.Equal(outsider.Hex(), rejected.Caller)
	s.Equal(audit.CategorySecurity, rejected.Category, "permission failures are security events")

	transfer := events[9]
	s.Equal(audit.DecisionApplied, transfer.Decision)
	s.Equal(holderA.Hex(), transfer.Subject)
	s.Equal(holderB.Hex(), transfer.Counterparty)
	s.Equal("25", transfer.Amount)
	s.Equal(now, transfer.LedgerTime)
	s.Equal(audit.CategoryCompliance, transfer.Category)
}

func (s *CoreSuite) TestComplianceRejectionIsJournaledWithReason() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(1000), now))
	s.Require().NoError(s.core.SetLockup(s.ctx, admin, holderA, now+60, now))
	s.Require().Error(s.core.Transfer(s.ctx, holderA, holderA, holderB, big.NewInt(1), now))

	events := s.journal()
	last := events[len(events)-1]
	s.Equal(audit.DecisionRejected, last.Decision)
	s.Equal(string(compliance.ReasonSenderLocked), last.Reason)
}

func (s *CoreSuite) TestOperatorEventsShareTheSequence() {
	s.deploy()
	ctx := requestcontext.WithCaller(s.ctx, admin)
	s.core.RecordOperatorEvent(ctx, audit.EventTokenIssued, agent.Hex(), "jti-1")

	events := s.journal()
	last := events[len(events)-1]
	s.Equal(s.core.Sequence(), last.Sequence)
	s.Equal(string(audit.EventTokenIssued), last.Action)
	s.Equal(admin.Hex(), last.Caller)
	s.Equal(audit.CategoryOperations, last.Category)
	s.Equal(audit.DecisionApplied, last.Decision)
}

func (s *CoreSuite) TestAccessAdministration() {
	s.Require().NoError(s.core.GrantRole(s.ctx, admin, accesscontrol.RoleRegistrar, agent))
	s.setIdentityAs(agent, holderA)

	s.Require().NoError(s.core.RenounceRole(s.ctx, agent, accesscontrol.RoleRegistrar))
	s.False(s.core.HasRole(accesscontrol.RoleRegistrar, agent))

	err := s.core.RevokeRole(s.ctx, admin, accesscontrol.RoleAdmin, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "last ADMIN cannot be removed")

	s.Require().NoError(s.core.SetRoleAdmin(s.ctx, admin, accesscontrol.RoleMinter, accesscontrol.RoleTransferAgent))
	s.Equal(accesscontrol.RoleTransferAgent, s.core.RoleAdmin(accesscontrol.RoleMinter))
	s.Equal([]domain.Address{admin}, s.core.Members(accesscontrol.RoleAdmin))
}

func (s *CoreSuite) setIdentityAs(caller, addr domain.Address) {
	s.Require().NoError(s.core.SetIdentity(s.ctx, caller, identity.Identity{
		Address:  addr,
		Verified: true,
		Expiry:   farFuture,
	}))
}

func (s *CoreSuite) TestConcurrentTransfersConserveSupply() {
	s.deploy()
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderA, big.NewInt(500), now))
	s.Require().NoError(s.core.Mint(s.ctx, agent, holderB, big.NewInt(500), now))
	start := s.core.Sequence()

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from, to := holderA, holderB
			if w%2 == 1 {
				from, to = holderB, holderA
			}
			for range perWorker {
				err := s.core.Transfer(s.ctx, from, from, to, big.NewInt(3), now)
				if err != nil && !dErrors.HasCode(err, dErrors.CodeInsufficientBalance) {
					s.Fail("unexpected transfer error", err.Error())
				}
				_ = s.core.CheckTransfer(s.ctx, from, to, big.NewInt(1), now)
				holders, supply := s.core.Holders()
				sum := new(big.Int)
				for _, h := range holders {
					sum.Add(sum, h.Balance)
				}
				if sum.Cmp(supply) != 0 {
					s.Fail("holders do not sum to supply")
				}
			}
		}()
	}
	wg.Wait()

	s.Equal(int64(1000), s.core.TotalSupply().Int64())
	total := new(big.Int).Add(s.core.BalanceOf(holderA), s.core.BalanceOf(holderB))
	s.Equal(int64(1000), total.Int64())
	s.Equal(start+workers*perWorker, s.core.Sequence(), "every attempt is journaled exactly once")

	seen := make(map[uint64]bool)
	for _, e := range s.journal() {
		s.False(seen[e.Sequence])
		seen[e.Sequence] = true
	}
}

type failingJournal struct{}

func (failingJournal) Emit(context.Context, audit.Event) error {
	return errors.New("journal down")
}

func (s *CoreSuite) TestJournalFailureDoesNotFailOperation() {
	c, err := New(Config{Admin: admin},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithJournal(failingJournal{}),
		WithStartSequence(41),
	)
	s.Require().NoError(err)

	s.Require().NoError(c.AllowJurisdiction(s.ctx, admin, 840, true))
	s.True(c.IsJurisdictionAllowed(840))
	s.Equal(uint64(42), c.Sequence())
}
