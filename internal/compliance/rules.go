package compliance

import (
	"math/big"

	"rwaledger/internal/identity"
	"rwaledger/pkg/domain"
)

// TransferInput is everything a decision depends on, gathered up front so the
// rule chain itself is pure.
type TransferInput struct {
	// Mint marks an issuance from the null source; sender rules are skipped.
	Mint   bool
	Amount *big.Int
	Now    int64

	Sender    identity.Identity
	Recipient identity.Identity

	SenderJurisdictionAllowed    bool
	RecipientJurisdictionAllowed bool

	// Lockup release timestamps; zero means no lockup.
	SenderLockup    int64
	RecipientLockup int64
	// EnforceRecipientLockup extends lockups to the receiving side.
	EnforceRecipientLockup bool

	// RequiredRecipientRole is zero when the recipient has no role gate.
	RequiredRecipientRole domain.RoleTag
}

// EvaluateTransfer applies the rule chain and returns the first failing reason.
// This is pure domain logic - no I/O, no side effects.
//
// Rule order (first failure wins, so reasons are reproducible):
//  1. amount > 0
//  2. sender currently verified        (skipped for mint)
//  3. recipient currently verified
//  4. sender jurisdiction allowed      (skipped for mint)
//  5. recipient jurisdiction allowed
//  6. sender not under lockup          (skipped for mint)
//     recipient not under lockup       (only when enforced)
//  7. recipient role matches its gate
func EvaluateTransfer(in TransferInput) Reason {
	if in.Amount == nil || in.Amount.Sign() <= 0 {
		return ReasonInvalidAmount
	}
	if !in.Mint && !in.Sender.IsCurrentlyVerified(in.Now) {
		return ReasonSenderNotVerified
	}
	if !in.Recipient.IsCurrentlyVerified(in.Now) {
		return ReasonRecipientNotVerified
	}
	if !in.Mint && !in.SenderJurisdictionAllowed {
		return ReasonSenderJurisdictionBlocked
	}
	if !in.RecipientJurisdictionAllowed {
		return ReasonRecipientJurisdictionBlocked
	}
	if !in.Mint && in.Now < in.SenderLockup {
		return ReasonSenderLocked
	}
	if in.EnforceRecipientLockup && in.Now < in.RecipientLockup {
		return ReasonRecipientLocked
	}
	if !in.RequiredRecipientRole.IsZero() && in.Recipient.Role != in.RequiredRecipientRole {
		return ReasonRecipientRoleMismatch
	}
	return ReasonAllowed
}
