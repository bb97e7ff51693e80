package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: issuance,
	// transfers, identity records and compliance rule changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers privilege changes and denied operations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as operator token issuance.
	CategoryOperations EventCategory = "operations"
)

// Decision values recorded on events.
const (
	DecisionApplied  = "applied"
	DecisionRejected = "rejected"
)

// Event is one journal entry. Sequence is assigned by the ledger core in commit
// order and is strictly increasing.
type Event struct {
	Sequence  uint64
	Category  EventCategory
	Timestamp time.Time
	// LedgerTime is the logical now the operation was evaluated at.
	LedgerTime   int64
	Action       string
	Caller       string
	Subject      string
	Counterparty string
	Amount       string
	Role         string
	// Detail carries action-specific values (jurisdiction code, release time).
	Detail    string
	Decision  string
	Reason    string
	RequestID string
	// Client is the user agent of the caller when known.
	Client string
}

// Touches reports whether address is a party to the event.
func (e Event) Touches(address string) bool {
	return e.Subject == address || e.Counterparty == address || e.Caller == address
}

type AuditEvent string

const (
	// Access control events
	EventRoleGranted      AuditEvent = "role_granted"
	EventRoleRevoked      AuditEvent = "role_revoked"
	EventRoleRenounced    AuditEvent = "role_renounced"
	EventRoleAdminChanged AuditEvent = "role_admin_changed"

	// Identity events
	EventIdentitySet AuditEvent = "identity_set"

	// Compliance rule events
	EventJurisdictionUpdated AuditEvent = "jurisdiction_updated"
	EventLockupSet           AuditEvent = "lockup_set"
	EventRequiredRoleSet     AuditEvent = "required_role_set"

	// Ledger events
	EventMinted      AuditEvent = "minted"
	EventTransferred AuditEvent = "transferred"

	// Operator token events
	EventTokenIssued  AuditEvent = "token_issued"
	EventTokenRevoked AuditEvent = "token_revoked"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventIdentitySet:         CategoryCompliance,
	EventJurisdictionUpdated: CategoryCompliance,
	EventLockupSet:           CategoryCompliance,
	EventRequiredRoleSet:     CategoryCompliance,
	EventMinted:              CategoryCompliance,
	EventTransferred:         CategoryCompliance,

	EventRoleGranted:      CategorySecurity,
	EventRoleRevoked:      CategorySecurity,
	EventRoleRenounced:    CategorySecurity,
	EventRoleAdminChanged: CategorySecurity,
	EventTokenRevoked:     CategorySecurity,

	EventTokenIssued: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists journal entries.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListBySubject returns events touching address in sequence order.
	ListBySubject(ctx context.Context, address string) ([]Event, error)
	// ListRecent returns up to limit of the newest events in sequence order.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
