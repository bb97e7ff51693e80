// Package ledger holds balances and total supply for the instrument.
//
// Every balance change is routed through the compliance engine first; on a
// denial nothing is applied. Mint increases total supply by exactly the minted
// amount and transfer conserves it. No operation can make a balance negative.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks ComplianceChecker

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"slices"
	"sync"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/compliance"
	"rwaledger/internal/ledger/metrics"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// ComplianceChecker evaluates prospective balance changes.
type ComplianceChecker interface {
	CheckTransfer(from, to domain.Address, amount *big.Int, now int64) compliance.Decision
	CheckMint(to domain.Address, amount *big.Int, now int64) compliance.Decision
}

// Authorizer answers role membership for issuance and forced transfers.
type Authorizer interface {
	HasAnyRole(account domain.Address, roles ...accesscontrol.Role) bool
}

// Ledger is the balance and supply store.
type Ledger struct {
	mu          sync.RWMutex
	balances    map[domain.Address]*big.Int
	totalSupply *big.Int

	meta       Metadata
	policy     Policy
	compliance ComplianceChecker
	authz      Authorizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func WithPolicy(p Policy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

func New(meta Metadata, checker ComplianceChecker, authz Authorizer, opts ...Option) (*Ledger, error) {
	if checker == nil {
		return nil, errors.New("compliance checker is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	if meta.Decimals > domain.MaxDecimals {
		return nil, errors.New("decimals out of range")
	}
	l := &Ledger{
		balances:    make(map[domain.Address]*big.Int),
		totalSupply: new(big.Int),
		meta:        meta,
		policy:      DefaultPolicy(),
		compliance:  checker,
		authz:       authz,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Mint issues amount to recipient. The caller must hold an issuer role.
func (l *Ledger) Mint(ctx context.Context, caller, to domain.Address, amount *big.Int, now int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.mintLocked(caller, to, amount, now)
	l.metrics.IncrementOperation("mint", outcome(err))
	if err != nil {
		l.logRejected(ctx, "mint", caller, amount, err, "to", to)
		return err
	}

	l.metrics.SetTotalSupply(l.totalSupply)
	if l.logger != nil {
		l.logger.InfoContext(ctx, "minted",
			"caller", caller,
			"to", to,
			"amount", amount.String(),
			"total_supply", l.totalSupply.String(),
		)
	}
	return nil
}

func (l *Ledger) mintLocked(caller, to domain.Address, amount *big.Int, now int64) error {
	if !l.authz.HasAnyRole(caller, l.policy.IssuerRoles...) {
		return dErrors.New(dErrors.CodeForbidden, "caller may not mint")
	}
	if amount == nil || amount.Sign() <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot mint to the null address")
	}
	if l.policy.SingleIssuance && l.totalSupply.Sign() != 0 {
		return dErrors.New(dErrors.CodeConflict, "instrument has already been issued")
	}
	if err := l.compliance.CheckMint(to, amount, now).Err(); err != nil {
		return err
	}

	l.credit(to, amount)
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// Transfer moves amount from -> to. The caller must be from or hold an agent role.
func (l *Ledger) Transfer(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.transferLocked(caller, from, to, amount, now)
	l.metrics.IncrementOperation("transfer", outcome(err))
	if err != nil {
		l.logRejected(ctx, "transfer", caller, amount, err, "from", from, "to", to)
		return err
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "transferred",
			"caller", caller,
			"from", from,
			"to", to,
			"amount", amount.String(),
		)
	}
	return nil
}

func (l *Ledger) transferLocked(caller, from, to domain.Address, amount *big.Int, now int64) error {
	if caller != from && !l.authz.HasAnyRole(caller, l.policy.AgentRoles...) {
		return dErrors.New(dErrors.CodeForbidden, "caller may not move funds of another holder")
	}
	if amount == nil || amount.Sign() <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive")
	}
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer parties must not be the null address")
	}
	if l.balanceLocked(from).Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeInsufficientBalance, "insufficient balance")
	}
	if err := l.compliance.CheckTransfer(from, to, amount, now).Err(); err != nil {
		return err
	}

	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// BalanceOf returns a copy of the balance held by address; unknown holders have zero.
func (l *Ledger) BalanceOf(address domain.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balanceLocked(address))
}

// TotalSupply returns a copy of the outstanding supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.totalSupply)
}

func (l *Ledger) Metadata() Metadata {
	return l.meta
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// Holders lists every non-zero balance in address order. The balances always
// sum to TotalSupply.
func (l *Ledger) Holders() []Holding {
	l.mu.RLock()
	out := make([]Holding, 0, len(l.balances))
	for addr, bal := range l.balances {
		out = append(out, Holding{Address: addr, Balance: new(big.Int).Set(bal)})
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Holding) int {
		return slices.Compare(a.Address[:], b.Address[:])
	})
	return out
}

func (l *Ledger) balanceLocked(address domain.Address) *big.Int {
	if bal, ok := l.balances[address]; ok {
		return bal
	}
	return new(big.Int)
}

func (l *Ledger) credit(address domain.Address, amount *big.Int) {
	bal, ok := l.balances[address]
	if !ok {
		bal = new(big.Int)
		l.balances[address] = bal
	}
	bal.Add(bal, amount)
}

// debit assumes the balance was checked; emptied entries are dropped so
// Holders only reports live positions.
func (l *Ledger) debit(address domain.Address, amount *big.Int) {
	bal := l.balances[address]
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(l.balances, address)
	}
}

// logRejected logs a refused mint or transfer. parties are the address
// key/value pairs of the operation.
func (l *Ledger) logRejected(ctx context.Context, op string, caller domain.Address, amount *big.Int, err error, parties ...any) {
	if l.logger == nil {
		return
	}
	args := append([]any{"operation", op, "caller", caller}, parties...)
	args = append(args, "code", dErrors.CodeOf(err))
	if amount != nil {
		args = append(args, "amount", amount.String())
	}
	if reason, ok := compliance.ReasonOf(err); ok {
		args = append(args, "reason", reason)
	}
	l.logger.WarnContext(ctx, "ledger operation rejected", args...)
}

func outcome(err error) string {
	if err == nil {
		return "applied"
	}
	return string(dErrors.CodeOf(err))
}
