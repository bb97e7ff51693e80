package genesis

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance"
	"rwaledger/internal/core"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

var (
	genesisTime = time.Unix(1_700_000_000, 0)
	oneYear     = int64(8760 * 3600)
	adminAddr   = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	investorUS  = domain.MustParseAddress("0xf4a2d5e1a29a32f6336803b52fa349ced34dad27")
	investorEU  = domain.MustParseAddress("0x9c28162eb3d7ff34ac3eaca9f98cbd12d9f3cfe6")
)

type GenesisSuite struct {
	suite.Suite
	ctx context.Context
}

func TestGenesisSuite(t *testing.T) {
	suite.Run(t, new(GenesisSuite))
}

func (s *GenesisSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *GenesisSuite) build(g *Genesis) *core.Core {
	c, err := core.New(g.Config, core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.Require().NoError(g.Apply(s.ctx, c))
	return c
}

func (s *GenesisSuite) TestExampleFile() {
	g, err := Load("../../genesis.example.yaml", genesisTime)
	s.Require().NoError(err)

	s.Equal(adminAddr, g.Config.Admin)
	s.Equal("ARF", g.Config.Metadata.Symbol)
	s.True(g.Config.Policy.SingleIssuance)
	s.Equal([]domain.Jurisdiction{840, 276, 250, 156}, g.Jurisdictions)

	c := s.build(g)

	for _, code := range []domain.Jurisdiction{840, 276, 250, 156} {
		s.True(c.IsJurisdictionAllowed(code))
	}
	s.True(c.HasRole(accesscontrol.RoleTransferAgent, adminAddr))
	s.True(c.IsCurrentlyVerified(investorEU, genesisTime.Unix()))
	s.False(c.IsCurrentlyVerified(investorEU, genesisTime.Unix()+oneYear))

	release, locked := c.LockupOf(investorUS)
	s.True(locked)
	s.Equal(genesisTime.Unix()+oneYear, release)

	thousand := new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	s.Equal(0, thousand.Cmp(c.BalanceOf(investorUS)))
	s.Equal(0, thousand.Cmp(c.TotalSupply()))

	// the Reg D lockup applies straight away
	decision := c.CheckTransfer(s.ctx, investorUS, investorEU, big.NewInt(1), genesisTime.Unix())
	s.Equal(compliance.ReasonSenderLocked, decision.Reason)
}

func (s *GenesisSuite) TestDefaults() {
	g, err := Parse([]byte(`admin: "0x1111111111111111111111111111111111111111"`), genesisTime)
	s.Require().NoError(err)

	s.Equal("Acme RWA Fund", g.Config.Metadata.Name)
	s.Equal(uint8(18), g.Config.Metadata.Decimals)
	s.False(g.Config.Policy.SingleIssuance)
	s.Equal([]accesscontrol.Role{accesscontrol.RoleMinter, accesscontrol.RoleTransferAgent}, g.Config.Policy.IssuerRoles)
	s.Empty(g.Jurisdictions)
}

func (s *GenesisSuite) TestZeroDecimalsIsHonoured() {
	g, err := Parse([]byte(`
admin: "0x1111111111111111111111111111111111111111"
token: {decimals: 0}
`), genesisTime)
	s.Require().NoError(err)
	s.Equal(uint8(0), g.Config.Metadata.Decimals)
}

func (s *GenesisSuite) TestValidationCollectsEveryProblem() {
	_, err := Parse([]byte(`
admin: "0x0000000000000000000000000000000000000000"
jurisdictions: [840, 0, 1000]
roles:
  - {role: "transfer agent", account: "0x12"}
identities:
  - {address: "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27", expiry: 5, expires_in: 1h}
allocations:
  - {to: "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27", amount: "1.5"}
`), genesisTime)
	s.Require().Error(err)

	msg := err.Error()
	for _, want := range []string{
		"admin: must be a non-zero address",
		"jurisdictions[1]",
		"jurisdictions[2]",
		"roles[0].role",
		"roles[0].account",
		"identities[0]: set expiry or expires_in, not both",
	} {
		s.Contains(msg, want)
	}
	s.NotContains(msg, "allocations[0]", "1.5 fits within 18 decimals")
}

func (s *GenesisSuite) TestGenesisTimeAnchorsOffsets() {
	doc := []byte(`
genesis_time: "2023-11-14T22:13:20Z"
admin: "0x1111111111111111111111111111111111111111"
lockups:
  - {address: "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27", release_in: 8760h}
`)
	// Loading the same document on two different restarts.
	first, err := Parse(doc, genesisTime)
	s.Require().NoError(err)
	second, err := Parse(doc, genesisTime.Add(30*24*time.Hour))
	s.Require().NoError(err)

	s.Equal(genesisTime.Unix(), first.Time)
	s.Equal(first.Time, second.Time)
	s.Require().Len(second.Lockups, 1)
	s.Equal(genesisTime.Unix()+oneYear, second.Lockups[0].release)

	_, err = Parse([]byte(`
genesis_time: "14 Nov 2023"
admin: "0x1111111111111111111111111111111111111111"
`), genesisTime)
	s.ErrorContains(err, "genesis_time")
}

func (s *GenesisSuite) TestUnknownKeysAreRejected() {
	_, err := Parse([]byte(`
admin: "0x1111111111111111111111111111111111111111"
jurisdiction: [840]
`), genesisTime)
	s.Error(err)
}

func (s *GenesisSuite) TestSingleIssuanceAllowsOneAllocation() {
	_, err := Parse([]byte(`
admin: "0x1111111111111111111111111111111111111111"
policy: {single_issuance: true}
allocations:
  - {to: "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27", amount: "1"}
  - {to: "0x9c28162eb3d7ff34ac3eaca9f98cbd12d9f3cfe6", amount: "1"}
`), genesisTime)
	s.ErrorContains(err, "single issuance")
}

func (s *GenesisSuite) TestApplySurfacesRejections() {
	// allocation to an unverified holder must fail compliance
	g, err := Parse([]byte(`
admin: "0x1111111111111111111111111111111111111111"
roles:
  - {role: MINTER, account: "0x1111111111111111111111111111111111111111"}
allocations:
  - {to: "0xf4a2d5e1a29a32f6336803b52fa349ced34dad27", amount: "10"}
`), genesisTime)
	s.Require().NoError(err)

	c, err := core.New(g.Config, core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	err = g.Apply(s.ctx, c)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeComplianceRejected))
	reason, ok := compliance.ReasonOf(err)
	s.True(ok)
	s.Equal(compliance.ReasonRecipientNotVerified, reason)
	s.Equal(0, c.TotalSupply().Sign())
}
