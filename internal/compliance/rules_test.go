package compliance

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"rwaledger/internal/identity"
	"rwaledger/pkg/domain"
)

const ruleNow int64 = 1_700_000_000

func verified(jurisdiction domain.Jurisdiction, role string) identity.Identity {
	return identity.Identity{
		Verified:     true,
		Jurisdiction: jurisdiction,
		Role:         domain.MustParseRoleTag(role),
		Expiry:       ruleNow + 3600,
	}
}

// passing returns an input that clears every rule.
func passing() TransferInput {
	return TransferInput{
		Amount:                       big.NewInt(10),
		Now:                          ruleNow,
		Sender:                       verified(840, "ACCREDITED"),
		Recipient:                    verified(276, "PROFESSIONAL"),
		SenderJurisdictionAllowed:    true,
		RecipientJurisdictionAllowed: true,
	}
}

func TestEvaluateTransfer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *TransferInput)
		want   Reason
	}{
		{"all rules pass", func(in *TransferInput) {}, ReasonAllowed},
		{"nil amount", func(in *TransferInput) { in.Amount = nil }, ReasonInvalidAmount},
		{"zero amount", func(in *TransferInput) { in.Amount = big.NewInt(0) }, ReasonInvalidAmount},
		{"negative amount", func(in *TransferInput) { in.Amount = big.NewInt(-1) }, ReasonInvalidAmount},
		{"sender unverified", func(in *TransferInput) { in.Sender.Verified = false }, ReasonSenderNotVerified},
		{"sender expiry equals now", func(in *TransferInput) { in.Sender.Expiry = ruleNow }, ReasonSenderNotVerified},
		{"recipient unverified", func(in *TransferInput) { in.Recipient.Verified = false }, ReasonRecipientNotVerified},
		{"recipient expired", func(in *TransferInput) { in.Recipient.Expiry = ruleNow - 1 }, ReasonRecipientNotVerified},
		{"sender jurisdiction blocked", func(in *TransferInput) { in.SenderJurisdictionAllowed = false }, ReasonSenderJurisdictionBlocked},
		{"recipient jurisdiction blocked", func(in *TransferInput) { in.RecipientJurisdictionAllowed = false }, ReasonRecipientJurisdictionBlocked},
		{"sender locked", func(in *TransferInput) { in.SenderLockup = ruleNow + 1 }, ReasonSenderLocked},
		{"sender lockup released at now", func(in *TransferInput) { in.SenderLockup = ruleNow }, ReasonAllowed},
		{"recipient lockup ignored by default", func(in *TransferInput) { in.RecipientLockup = ruleNow + 1 }, ReasonAllowed},
		{"recipient lockup enforced", func(in *TransferInput) {
			in.RecipientLockup = ruleNow + 1
			in.EnforceRecipientLockup = true
		}, ReasonRecipientLocked},
		{"role gate matches", func(in *TransferInput) {
			in.RequiredRecipientRole = domain.MustParseRoleTag("PROFESSIONAL")
		}, ReasonAllowed},
		{"role gate mismatch", func(in *TransferInput) {
			in.RequiredRecipientRole = domain.MustParseRoleTag("ACCREDITED")
		}, ReasonRecipientRoleMismatch},
		{"first failure wins", func(in *TransferInput) {
			in.Amount = big.NewInt(0)
			in.Sender.Verified = false
			in.RecipientJurisdictionAllowed = false
		}, ReasonInvalidAmount},
		{"sender checks precede recipient jurisdiction", func(in *TransferInput) {
			in.SenderJurisdictionAllowed = false
			in.RecipientJurisdictionAllowed = false
			in.SenderLockup = ruleNow + 10
		}, ReasonSenderJurisdictionBlocked},
		{"recipient verification precedes sender jurisdiction", func(in *TransferInput) {
			in.Recipient.Verified = false
			in.SenderJurisdictionAllowed = false
		}, ReasonRecipientNotVerified},
		{"lockup precedes role gate", func(in *TransferInput) {
			in.SenderLockup = ruleNow + 10
			in.RequiredRecipientRole = domain.MustParseRoleTag("ACCREDITED")
		}, ReasonSenderLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := passing()
			tt.mutate(&in)
			assert.Equal(t, tt.want, EvaluateTransfer(in))
		})
	}
}

func TestEvaluateTransfer_MintSkipsSenderRules(t *testing.T) {
	in := passing()
	in.Mint = true
	in.Sender = identity.Identity{}
	in.SenderJurisdictionAllowed = false
	in.SenderLockup = ruleNow + 100
	assert.Equal(t, ReasonAllowed, EvaluateTransfer(in))

	in.Recipient.Verified = false
	assert.Equal(t, ReasonRecipientNotVerified, EvaluateTransfer(in))

	in = passing()
	in.Mint = true
	in.RecipientJurisdictionAllowed = false
	assert.Equal(t, ReasonRecipientJurisdictionBlocked, EvaluateTransfer(in))

	in = passing()
	in.Mint = true
	in.RequiredRecipientRole = domain.MustParseRoleTag("ACCREDITED")
	assert.Equal(t, ReasonRecipientRoleMismatch, EvaluateTransfer(in))
}
