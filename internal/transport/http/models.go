package httptransport

import (
	"math/big"
	"strings"
	"time"

	"rwaledger/internal/accesscontrol"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

type SetIdentityRequest struct {
	Verified     bool   `json:"verified"`
	Jurisdiction int    `json:"jurisdiction"`
	Role         string `json:"role"`
	Expiry       int64  `json:"expiry"`

	jurisdiction domain.Jurisdiction
	role         domain.RoleTag
}

func (r *SetIdentityRequest) Validate() error {
	j, err := domain.NewJurisdiction(r.Jurisdiction)
	if err != nil {
		return err
	}
	tag, err := parseRoleTag(r.Role)
	if err != nil {
		return err
	}
	if r.Expiry < 0 {
		return dErrors.New(dErrors.CodeValidation, "expiry must be non-negative unix seconds")
	}
	r.jurisdiction, r.role = j, tag
	return nil
}

// parseRoleTag rejects surrounding whitespace so a stored tag reads back
// exactly as it was sent.
func parseRoleTag(s string) (domain.RoleTag, error) {
	if s != strings.TrimSpace(s) {
		return domain.RoleTag{}, dErrors.New(dErrors.CodeInvalidInput, "role tag cannot have surrounding whitespace")
	}
	return domain.ParseRoleTag(s)
}

type IdentityResponse struct {
	Address           string `json:"address"`
	Verified          bool   `json:"verified"`
	Jurisdiction      int    `json:"jurisdiction"`
	Role              string `json:"role"`
	Expiry            int64  `json:"expiry"`
	CurrentlyVerified bool   `json:"currently_verified"`
	EvaluatedAt       int64  `json:"evaluated_at"`
}

// -----------------------------------------------------------------------------
// Compliance
// -----------------------------------------------------------------------------

type AllowJurisdictionRequest struct {
	Allowed *bool `json:"allowed"`
}

func (r *AllowJurisdictionRequest) Validate() error {
	if r.Allowed == nil {
		return dErrors.New(dErrors.CodeValidation, "allowed is required")
	}
	return nil
}

type JurisdictionResponse struct {
	Code    int  `json:"code"`
	Allowed bool `json:"allowed"`
}

type JurisdictionListResponse struct {
	Allowed []int `json:"allowed"`
}

type SetLockupRequest struct {
	// Release is the Unix time the lockup ends; a value at or before the
	// ledger time clears it.
	Release int64 `json:"release"`
}

func (r *SetLockupRequest) Validate() error {
	if r.Release < 0 {
		return dErrors.New(dErrors.CodeValidation, "release must be non-negative unix seconds")
	}
	return nil
}

type LockupResponse struct {
	Address string `json:"address"`
	Locked  bool   `json:"locked"`
	Release int64  `json:"release,omitempty"`
}

type SetRecipientRoleRequest struct {
	// Role is the identity role a recipient must hold; empty clears the gate.
	Role string `json:"role"`

	role domain.RoleTag
}

func (r *SetRecipientRoleRequest) Validate() error {
	tag, err := parseRoleTag(r.Role)
	if err != nil {
		return err
	}
	r.role = tag
	return nil
}

type RecipientRoleResponse struct {
	Address string `json:"address"`
	Role    string `json:"role,omitempty"`
	Gated   bool   `json:"gated"`
}

type CheckRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	// Mint evaluates issuance to To; From must then be empty.
	Mint bool `json:"mint"`

	from, to domain.Address
	amount   *big.Int
}

func (r *CheckRequest) Validate() error {
	var err error
	if r.Mint {
		if r.From != "" {
			return dErrors.New(dErrors.CodeValidation, "from must be empty for a mint check")
		}
	} else if r.from, err = domain.ParseAddress(r.From); err != nil {
		return err
	}
	if r.to, err = domain.ParseAddress(r.To); err != nil {
		return err
	}
	// Non-positive amounts are a compliance reason, not a request error.
	r.amount, err = parseSignedAmount(r.Amount)
	return err
}

type DecisionResponse struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason"`
	EvaluatedAt int64  `json:"evaluated_at"`
}

// -----------------------------------------------------------------------------
// Ledger
// -----------------------------------------------------------------------------

type MintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`

	to     domain.Address
	amount *big.Int
}

func (r *MintRequest) Validate() error {
	var err error
	if r.to, err = domain.ParseAddress(r.To); err != nil {
		return err
	}
	r.amount, err = domain.ParseAmount(r.Amount)
	return err
}

type TransferRequest struct {
	// From defaults to the caller.
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`

	from   domain.Address
	to     domain.Address
	amount *big.Int
}

func (r *TransferRequest) Validate() error {
	var err error
	if r.From != "" {
		if r.from, err = domain.ParseAddress(r.From); err != nil {
			return err
		}
	}
	if r.to, err = domain.ParseAddress(r.To); err != nil {
		return err
	}
	r.amount, err = domain.ParseAmount(r.Amount)
	return err
}

type MovementResponse struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type BalanceResponse struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Formatted string `json:"formatted"`
}

type PolicyResponse struct {
	SingleIssuance bool     `json:"single_issuance"`
	IssuerRoles    []string `json:"issuer_roles"`
	AgentRoles     []string `json:"agent_roles"`
}

type TokenResponse struct {
	Name                 string         `json:"name"`
	Symbol               string         `json:"symbol"`
	Decimals             uint8          `json:"decimals"`
	TotalSupply          string         `json:"total_supply"`
	TotalSupplyFormatted string         `json:"total_supply_formatted"`
	Policy               PolicyResponse `json:"policy"`
}

type HoldersResponse struct {
	Holders     []BalanceResponse `json:"holders"`
	TotalSupply string            `json:"total_supply"`
}

// -----------------------------------------------------------------------------
// Access control
// -----------------------------------------------------------------------------

type GrantRoleRequest struct {
	Account string `json:"account"`

	account domain.Address
}

func (r *GrantRoleRequest) Validate() error {
	var err error
	r.account, err = domain.ParseAddress(r.Account)
	return err
}

type SetRoleAdminRequest struct {
	AdminRole string `json:"admin_role"`

	adminRole accesscontrol.Role
}

func (r *SetRoleAdminRequest) Validate() error {
	var err error
	r.adminRole, err = accesscontrol.ParseRole(r.AdminRole)
	return err
}

type RoleMembershipResponse struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	HasRole bool   `json:"has_role"`
}

type RoleResponse struct {
	Role      string   `json:"role"`
	AdminRole string   `json:"admin_role"`
	Members   []string `json:"members"`
}

// -----------------------------------------------------------------------------
// Audit
// -----------------------------------------------------------------------------

type AuditEventResponse struct {
	Sequence     uint64    `json:"sequence"`
	Category     string    `json:"category"`
	Action       string    `json:"action"`
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason,omitempty"`
	Caller       string    `json:"caller,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Role         string    `json:"role,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	LedgerTime   int64     `json:"ledger_time"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	Client       string    `json:"client,omitempty"`
}

type AuditEventsResponse struct {
	Events []AuditEventResponse `json:"events"`
}

// -----------------------------------------------------------------------------
// Operator tokens
// -----------------------------------------------------------------------------

type IssueTokenRequest struct {
	Subject    string `json:"subject"`
	Label      string `json:"label,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`

	subject domain.Address
}

func (r *IssueTokenRequest) Validate() error {
	var err error
	if r.subject, err = domain.ParseAddress(r.Subject); err != nil {
		return err
	}
	if r.subject.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "subject must be a non-zero address")
	}
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be non-negative")
	}
	if len(r.Label) > 128 {
		return dErrors.New(dErrors.CodeValidation, "label must be at most 128 characters")
	}
	return nil
}

type IssueTokenResponse struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RevokeTokenRequest struct {
	Token string `json:"token"`
}

func (r *RevokeTokenRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

type RevokeTokenResponse struct {
	TokenID string `json:"token_id"`
	Revoked bool   `json:"revoked"`
}

// parseSignedAmount accepts an optional leading minus so a check request can
// ask about a negative amount and receive the invalid_amount reason.
func parseSignedAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		v, err := domain.ParseAmount(rest)
		if err != nil {
			return nil, err
		}
		return v.Neg(v), nil
	}
	return domain.ParseAmount(s)
}
