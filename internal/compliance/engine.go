// Package compliance owns the transfer rule tables and evaluates whether a
// prospective transfer or mint is legal.
//
// Rule tables are the jurisdiction allowlist, per-holder lockups and
// per-recipient role gates. Identity facts are read through IdentityReader so
// the engine can be exercised in isolation with injected registry state.
package compliance

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks IdentityReader,Authorizer

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"time"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance/metrics"
	"rwaledger/internal/identity"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// IdentityReader is the registry lookup the engine evaluates against.
type IdentityReader interface {
	GetIdentity(address domain.Address) identity.Identity
}

// Authorizer answers role checks for rule administration.
type Authorizer interface {
	RequireAnyRole(caller domain.Address, roles ...accesscontrol.Role) error
}

// Engine holds the compliance rule tables.
type Engine struct {
	mu            sync.RWMutex
	jurisdictions map[domain.Jurisdiction]struct{}
	lockups       map[domain.Address]int64
	requiredRoles map[domain.Address]domain.RoleTag

	identities      IdentityReader
	authz           Authorizer
	adminRoles      []accesscontrol.Role
	recipientLockup bool
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRecipientLockup makes lockups block receipt as well as sending.
func WithRecipientLockup(enabled bool) Option {
	return func(e *Engine) {
		e.recipientLockup = enabled
	}
}

func NewEngine(identities IdentityReader, authz Authorizer, opts ...Option) (*Engine, error) {
	if identities == nil {
		return nil, errors.New("identity reader is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	e := &Engine{
		jurisdictions: make(map[domain.Jurisdiction]struct{}),
		lockups:       make(map[domain.Address]int64),
		requiredRoles: make(map[domain.Address]domain.RoleTag),
		identities:    identities,
		authz:         authz,
		adminRoles:    []accesscontrol.Role{accesscontrol.RoleAdmin},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AllowJurisdiction adds or removes code from the allowlist. Repeating a call
// leaves the allowlist unchanged.
func (e *Engine) AllowJurisdiction(ctx context.Context, caller domain.Address, code domain.Jurisdiction, allowed bool) error {
	if err := e.requireAdmin(ctx, caller, "allow_jurisdiction"); err != nil {
		return err
	}

	e.mu.Lock()
	if allowed {
		e.jurisdictions[code] = struct{}{}
	} else {
		delete(e.jurisdictions, code)
	}
	e.mu.Unlock()

	e.logInfo(ctx, "jurisdiction updated",
		"caller", caller,
		"jurisdiction", code,
		"allowed", allowed,
	)
	return nil
}

// SetLockup sets a sender-side lockup for address. A release at or before now
// clears any existing lockup.
func (e *Engine) SetLockup(ctx context.Context, caller, address domain.Address, release, now int64) error {
	if err := e.requireAdmin(ctx, caller, "set_lockup"); err != nil {
		return err
	}

	e.mu.Lock()
	cleared := release <= now
	if cleared {
		delete(e.lockups, address)
	} else {
		e.lockups[address] = release
	}
	e.mu.Unlock()

	e.logInfo(ctx, "lockup updated",
		"caller", caller,
		"address", address,
		"release", release,
		"cleared", cleared,
	)
	return nil
}

// SetRequiredRoleForRecipient gates receipt at address on an exact role tag
// match. The zero tag clears the gate.
func (e *Engine) SetRequiredRoleForRecipient(ctx context.Context, caller, address domain.Address, role domain.RoleTag) error {
	if err := e.requireAdmin(ctx, caller, "set_required_role"); err != nil {
		return err
	}

	e.mu.Lock()
	if role.IsZero() {
		delete(e.requiredRoles, address)
	} else {
		e.requiredRoles[address] = role
	}
	e.mu.Unlock()

	e.logInfo(ctx, "recipient role gate updated",
		"caller", caller,
		"address", address,
		"role", role,
	)
	return nil
}

// IsJurisdictionAllowed reports allowlist membership. Unlisted codes are denied.
func (e *Engine) IsJurisdictionAllowed(code domain.Jurisdiction) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.jurisdictions[code]
	return ok
}

// AllowedJurisdictions returns the allowlist in ascending order.
func (e *Engine) AllowedJurisdictions() []domain.Jurisdiction {
	e.mu.RLock()
	out := make([]domain.Jurisdiction, 0, len(e.jurisdictions))
	for code := range e.jurisdictions {
		out = append(out, code)
	}
	e.mu.RUnlock()
	slices.Sort(out)
	return out
}

// LockupOf returns the stored release timestamp for address. A stored release
// may already have passed; callers compare against their own now.
func (e *Engine) LockupOf(address domain.Address) (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	release, ok := e.lockups[address]
	return release, ok
}

// RequiredRoleFor returns the role gate for a recipient, if any.
func (e *Engine) RequiredRoleFor(address domain.Address) (domain.RoleTag, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	role, ok := e.requiredRoles[address]
	return role, ok
}

// CheckTransfer evaluates a transfer of amount from -> to at now. It never
// mutates state.
func (e *Engine) CheckTransfer(from, to domain.Address, amount *big.Int, now int64) Decision {
	return e.evaluate(false, from, to, amount, now)
}

// CheckMint evaluates an issuance to recipient. Sender-side rules do not apply
// to the null source.
func (e *Engine) CheckMint(to domain.Address, amount *big.Int, now int64) Decision {
	return e.evaluate(true, domain.ZeroAddress, to, amount, now)
}

func (e *Engine) evaluate(mint bool, from, to domain.Address, amount *big.Int, now int64) Decision {
	start := time.Now()
	input := e.gatherInput(mint, from, to, amount, now)
	decision := decide(EvaluateTransfer(input))

	e.metrics.ObserveEvaluateLatency(time.Since(start))
	e.metrics.IncrementDecision(kindLabel(mint), string(decision.Reason))
	return decision
}

// gatherInput snapshots every fact the rule chain needs.
func (e *Engine) gatherInput(mint bool, from, to domain.Address, amount *big.Int, now int64) TransferInput {
	recipient := e.identities.GetIdentity(to)
	var sender identity.Identity
	if !mint {
		sender = e.identities.GetIdentity(from)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, senderAllowed := e.jurisdictions[sender.Jurisdiction]
	_, recipientAllowed := e.jurisdictions[recipient.Jurisdiction]
	requiredRole := e.requiredRoles[to]

	in := TransferInput{
		Mint:                         mint,
		Amount:                       amount,
		Now:                          now,
		Sender:                       sender,
		Recipient:                    recipient,
		SenderJurisdictionAllowed:    senderAllowed,
		RecipientJurisdictionAllowed: recipientAllowed,
		EnforceRecipientLockup:       e.recipientLockup,
		RequiredRecipientRole:        requiredRole,
	}
	if !mint {
		in.SenderLockup = e.lockups[from]
	}
	if e.recipientLockup {
		in.RecipientLockup = e.lockups[to]
	}
	return in
}

func (e *Engine) requireAdmin(ctx context.Context, caller domain.Address, op string) error {
	if err := e.authz.RequireAnyRole(caller, e.adminRoles...); err != nil {
		if e.logger != nil {
			e.logger.WarnContext(ctx, "compliance rule change denied",
				"caller", caller,
				"operation", op,
			)
		}
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeForbidden, "caller may not administer compliance rules")
	}
	return nil
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.InfoContext(ctx, msg, args...)
	}
}

func kindLabel(mint bool) string {
	if mint {
		return "mint"
	}
	return "transfer"
}
