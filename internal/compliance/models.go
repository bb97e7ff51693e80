package compliance

import (
	"errors"

	dErrors "rwaledger/pkg/domain-errors"
)

// Reason explains a compliance decision. Values are stable and safe to log and
// return to callers.
type Reason string

const (
	ReasonAllowed                      Reason = "allowed"
	ReasonInvalidAmount                Reason = "invalid_amount"
	ReasonSenderNotVerified            Reason = "sender_not_verified"
	ReasonRecipientNotVerified         Reason = "recipient_not_verified"
	ReasonSenderJurisdictionBlocked    Reason = "sender_jurisdiction_blocked"
	ReasonRecipientJurisdictionBlocked Reason = "recipient_jurisdiction_blocked"
	ReasonSenderLocked                 Reason = "sender_locked"
	ReasonRecipientLocked              Reason = "recipient_locked"
	ReasonRecipientRoleMismatch        Reason = "recipient_role_mismatch"
)

func (r Reason) String() string {
	return string(r)
}

// Decision is the allow/deny outcome for a prospective transfer or mint.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func decide(reason Reason) Decision {
	return Decision{Allowed: reason == ReasonAllowed, Reason: reason}
}

// Err converts a denial into a compliance_rejected domain error carrying the
// reason. It returns nil for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return dErrors.Wrap(&RejectedError{Reason: d.Reason}, dErrors.CodeComplianceRejected, "rejected by compliance")
}

// RejectedError preserves the specific reason behind a compliance rejection.
type RejectedError struct {
	Reason Reason
}

func (e *RejectedError) Error() string {
	return string(e.Reason)
}

// RejectionReason lets transports surface the reason without importing this package.
func (e *RejectedError) RejectionReason() string {
	return string(e.Reason)
}

// ReasonOf extracts the compliance reason from an error chain.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
