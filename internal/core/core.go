// Package core serializes every ledger operation into one total order.
//
// Core wires access control, the identity registry, the compliance engine and
// the ledger together and guards them with a single lock: mutations take it
// exclusively and reads share it, so a read never observes half of a mutation
// and concurrent transports see the same order a single caller would. Every
// committed mutation and every rejected mutation is journaled with a strictly
// increasing sequence number.
package core

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance"
	complianceMetrics "rwaledger/internal/compliance/metrics"
	"rwaledger/internal/identity"
	"rwaledger/internal/ledger"
	ledgerMetrics "rwaledger/internal/ledger/metrics"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/requestcontext"
)

const tracerName = "rwaledger/internal/core"

// Journal receives one event per mutation attempt.
type Journal interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config describes the genesis state of a ledger.
type Config struct {
	Admin    domain.Address
	Metadata ledger.Metadata
	Policy   ledger.Policy
	// RegistryWriters overrides the roles allowed to write identities.
	RegistryWriters []accesscontrol.Role
	// RecipientLockup makes lockups block receipt as well as sending.
	RecipientLockup bool
}

// Core is the serialized facade over all ledger components.
type Core struct {
	mu  sync.RWMutex
	seq uint64

	acl      *accesscontrol.Service
	registry *identity.Registry
	engine   *compliance.Engine
	ledger   *ledger.Ledger

	journal           Journal
	logger            *slog.Logger
	tracer            trace.Tracer
	complianceMetrics *complianceMetrics.Metrics
	ledgerMetrics     *ledgerMetrics.Metrics
}

type Option func(*Core)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

func WithJournal(j Journal) Option {
	return func(c *Core) {
		c.journal = j
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Core) {
		c.tracer = t
	}
}

func WithMetrics(cm *complianceMetrics.Metrics, lm *ledgerMetrics.Metrics) Option {
	return func(c *Core) {
		c.complianceMetrics = cm
		c.ledgerMetrics = lm
	}
}

// WithStartSequence continues numbering after seq, for journals that outlive
// the process.
func WithStartSequence(seq uint64) Option {
	return func(c *Core) {
		c.seq = seq
	}
}

// New builds the component graph with cfg.Admin as the sole ADMIN.
func New(cfg Config, opts ...Option) (*Core, error) {
	c := &Core{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	acl, err := accesscontrol.New(cfg.Admin, accesscontrol.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	registryOpts := []identity.Option{identity.WithLogger(c.logger)}
	if len(cfg.RegistryWriters) > 0 {
		registryOpts = append(registryOpts, identity.WithWriterRoles(cfg.RegistryWriters...))
	}
	registry, err := identity.NewRegistry(acl, registryOpts...)
	if err != nil {
		return nil, err
	}

	engine, err := compliance.NewEngine(registry, acl,
		compliance.WithLogger(c.logger),
		compliance.WithMetrics(c.complianceMetrics),
		compliance.WithRecipientLockup(cfg.RecipientLockup),
	)
	if err != nil {
		return nil, err
	}

	policy := cfg.Policy
	if len(policy.IssuerRoles) == 0 && len(policy.AgentRoles) == 0 {
		single := policy.SingleIssuance
		policy = ledger.DefaultPolicy()
		policy.SingleIssuance = single
	}
	l, err := ledger.New(cfg.Metadata, engine, acl,
		ledger.WithLogger(c.logger),
		ledger.WithMetrics(c.ledgerMetrics),
		ledger.WithPolicy(policy),
	)
	if err != nil {
		return nil, err
	}

	c.acl, c.registry, c.engine, c.ledger = acl, registry, engine, l
	return c, nil
}

// Sequence returns the sequence number of the last journaled event.
func (c *Core) Sequence() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// -----------------------------------------------------------------------------
// Access administration
// -----------------------------------------------------------------------------

func (c *Core) GrantRole(ctx context.Context, caller domain.Address, role accesscontrol.Role, account domain.Address) error {
	return c.mutate(ctx, "GrantRole", audit.Event{
		Action:  string(audit.EventRoleGranted),
		Caller:  caller.Hex(),
		Subject: account.Hex(),
		Role:    string(role),
	}, func() error {
		return c.acl.GrantRole(ctx, caller, role, account)
	})
}

func (c *Core) RevokeRole(ctx context.Context, caller domain.Address, role accesscontrol.Role, account domain.Address) error {
	return c.mutate(ctx, "RevokeRole", audit.Event{
		Action:  string(audit.EventRoleRevoked),
		Caller:  caller.Hex(),
		Subject: account.Hex(),
		Role:    string(role),
	}, func() error {
		return c.acl.RevokeRole(ctx, caller, role, account)
	})
}

func (c *Core) RenounceRole(ctx context.Context, caller domain.Address, role accesscontrol.Role) error {
	return c.mutate(ctx, "RenounceRole", audit.Event{
		Action:  string(audit.EventRoleRenounced),
		Caller:  caller.Hex(),
		Subject: caller.Hex(),
		Role:    string(role),
	}, func() error {
		return c.acl.RenounceRole(ctx, caller, role)
	})
}

func (c *Core) SetRoleAdmin(ctx context.Context, caller domain.Address, role, adminRole accesscontrol.Role) error {
	return c.mutate(ctx, "SetRoleAdmin", audit.Event{
		Action: string(audit.EventRoleAdminChanged),
		Caller: caller.Hex(),
		Role:   string(role),
		Detail: string(adminRole),
	}, func() error {
		return c.acl.SetRoleAdmin(ctx, caller, role, adminRole)
	})
}

func (c *Core) HasRole(role accesscontrol.Role, account domain.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acl.HasRole(role, account)
}

func (c *Core) Members(role accesscontrol.Role) []domain.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acl.Members(role)
}

func (c *Core) RoleAdmin(role accesscontrol.Role) accesscontrol.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acl.RoleAdmin(role)
}

// -----------------------------------------------------------------------------
// Identity administration
// -----------------------------------------------------------------------------

func (c *Core) SetIdentity(ctx context.Context, caller domain.Address, id identity.Identity) error {
	return c.mutate(ctx, "SetIdentity", audit.Event{
		Action:  string(audit.EventIdentitySet),
		Caller:  caller.Hex(),
		Subject: id.Address.Hex(),
		Role:    id.Role.String(),
		Detail: "verified=" + strconv.FormatBool(id.Verified) +
			" jurisdiction=" + id.Jurisdiction.String() +
			" expiry=" + strconv.FormatInt(id.Expiry, 10),
	}, func() error {
		return c.registry.SetIdentity(ctx, caller, id)
	})
}

func (c *Core) GetIdentity(address domain.Address) identity.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.GetIdentity(address)
}

func (c *Core) IsCurrentlyVerified(address domain.Address, now int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.IsCurrentlyVerified(address, now)
}

// -----------------------------------------------------------------------------
// Compliance administration
// -----------------------------------------------------------------------------

func (c *Core) AllowJurisdiction(ctx context.Context, caller domain.Address, code domain.Jurisdiction, allowed bool) error {
	return c.mutate(ctx, "AllowJurisdiction", audit.Event{
		Action: string(audit.EventJurisdictionUpdated),
		Caller: caller.Hex(),
		Detail: "jurisdiction=" + code.String() + " allowed=" + strconv.FormatBool(allowed),
	}, func() error {
		return c.engine.AllowJurisdiction(ctx, caller, code, allowed)
	})
}

func (c *Core) SetLockup(ctx context.Context, caller, address domain.Address, release, now int64) error {
	return c.mutate(ctx, "SetLockup", audit.Event{
		Action:     string(audit.EventLockupSet),
		Caller:     caller.Hex(),
		Subject:    address.Hex(),
		LedgerTime: now,
		Detail:     "release=" + strconv.FormatInt(release, 10),
	}, func() error {
		return c.engine.SetLockup(ctx, caller, address, release, now)
	})
}

func (c *Core) SetRequiredRoleForRecipient(ctx context.Context, caller, address domain.Address, role domain.RoleTag) error {
	return c.mutate(ctx, "SetRequiredRoleForRecipient", audit.Event{
		Action:  string(audit.EventRequiredRoleSet),
		Caller:  caller.Hex(),
		Subject: address.Hex(),
		Role:    role.String(),
	}, func() error {
		return c.engine.SetRequiredRoleForRecipient(ctx, caller, address, role)
	})
}

// CheckTransfer evaluates a prospective transfer without changing state.
func (c *Core) CheckTransfer(ctx context.Context, from, to domain.Address, amount *big.Int, now int64) compliance.Decision {
	_, span := c.tracer.Start(ctx, "core.CheckTransfer", trace.WithAttributes(
		attribute.String("ledger.from", from.Hex()),
		attribute.String("ledger.to", to.Hex()),
	))
	defer span.End()

	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.engine.CheckTransfer(from, to, amount, now)
	span.SetAttributes(attribute.String("compliance.reason", string(d.Reason)))
	return d
}

// CheckMint evaluates a prospective issuance without changing state.
func (c *Core) CheckMint(ctx context.Context, to domain.Address, amount *big.Int, now int64) compliance.Decision {
	_, span := c.tracer.Start(ctx, "core.CheckMint", trace.WithAttributes(
		attribute.String("ledger.to", to.Hex()),
	))
	defer span.End()

	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.engine.CheckMint(to, amount, now)
	span.SetAttributes(attribute.String("compliance.reason", string(d.Reason)))
	return d
}

func (c *Core) IsJurisdictionAllowed(code domain.Jurisdiction) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.IsJurisdictionAllowed(code)
}

func (c *Core) AllowedJurisdictions() []domain.Jurisdiction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.AllowedJurisdictions()
}

func (c *Core) LockupOf(address domain.Address) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.LockupOf(address)
}

func (c *Core) RequiredRoleFor(address domain.Address) (domain.RoleTag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.RequiredRoleFor(address)
}

// -----------------------------------------------------------------------------
// Ledger operations
// -----------------------------------------------------------------------------

func (c *Core) Mint(ctx context.Context, caller, to domain.Address, amount *big.Int, now int64) error {
	return c.mutate(ctx, "Mint", audit.Event{
		Action:     string(audit.EventMinted),
		Caller:     caller.Hex(),
		Subject:    to.Hex(),
		Amount:     amountString(amount),
		LedgerTime: now,
	}, func() error {
		return c.ledger.Mint(ctx, caller, to, amount, now)
	})
}

func (c *Core) Transfer(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) error {
	return c.mutate(ctx, "Transfer", audit.Event{
		Action:       string(audit.EventTransferred),
		Caller:       caller.Hex(),
		Subject:      from.Hex(),
		Counterparty: to.Hex(),
		Amount:       amountString(amount),
		LedgerTime:   now,
	}, func() error {
		return c.ledger.Transfer(ctx, caller, from, to, amount, now)
	})
}

func (c *Core) BalanceOf(address domain.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.BalanceOf(address)
}

func (c *Core) TotalSupply() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.TotalSupply()
}

func (c *Core) Metadata() ledger.Metadata {
	return c.ledger.Metadata()
}

func (c *Core) Policy() ledger.Policy {
	return c.ledger.Policy()
}

// Holders returns every non-zero balance together with the supply they sum to,
// read at one point in the order.
func (c *Core) Holders() ([]ledger.Holding, *big.Int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Holders(), c.ledger.TotalSupply()
}

// -----------------------------------------------------------------------------
// Serialization and journaling
// -----------------------------------------------------------------------------

// mutate runs apply under the exclusive lock and journals the outcome.
func (c *Core) mutate(ctx context.Context, op string, event audit.Event, apply func() error) error {
	ctx, span := c.tracer.Start(ctx, "core."+op, trace.WithAttributes(
		attribute.String("ledger.caller", event.Caller),
		attribute.String("ledger.action", event.Action),
	))
	defer span.End()

	c.mu.Lock()
	err := apply()
	c.record(ctx, event, err)
	seq := c.seq
	c.mu.Unlock()

	span.SetAttributes(attribute.Int64("ledger.sequence", int64(seq)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

// record assigns the next sequence number and hands the event to the journal.
// Callers must hold the exclusive lock.
func (c *Core) record(ctx context.Context, event audit.Event, opErr error) {
	c.seq++
	event.Sequence = c.seq
	event.Category = audit.AuditEvent(event.Action).Category()
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.Client = requestcontext.ClientName(ctx)
	if event.LedgerTime == 0 {
		event.LedgerTime = requestcontext.LedgerTime(ctx)
	}

	event.Decision = audit.DecisionApplied
	if opErr != nil {
		event.Decision = audit.DecisionRejected
		event.Reason = rejectionReason(opErr)
		// permission failures are security events whatever was attempted
		if dErrors.HasCode(opErr, dErrors.CodeForbidden) {
			event.Category = audit.CategorySecurity
		}
	}

	if c.journal == nil {
		return
	}
	if err := c.journal.Emit(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "failed to journal ledger event",
			"sequence", event.Sequence,
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

// RecordOperatorEvent journals an operator action that does not touch ledger
// state, such as bearer token issuance, in the same sequence as mutations.
func (c *Core) RecordOperatorEvent(ctx context.Context, action audit.AuditEvent, subject, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(ctx, audit.Event{
		Action:  string(action),
		Caller:  callerString(ctx),
		Subject: subject,
		Detail:  detail,
	}, nil)
}

func callerString(ctx context.Context) string {
	if caller := requestcontext.Caller(ctx); !caller.IsZero() {
		return caller.Hex()
	}
	return ""
}

func rejectionReason(err error) string {
	if reason, ok := compliance.ReasonOf(err); ok {
		return string(reason)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return string(de.Code)
	}
	return string(dErrors.CodeInternal)
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return ""
	}
	return amount.String()
}
