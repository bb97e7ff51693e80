// Package identity is the registry of verified-identity facts about addresses.
//
// The registry performs no cross-validation of jurisdiction codes or role tags;
// those taxonomies belong to the compliance engine. Records are never deleted,
// only overwritten or allowed to lapse through their expiry.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rwaledger/internal/accesscontrol"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// Authorizer answers role checks for registry writes.
type Authorizer interface {
	RequireAnyRole(caller domain.Address, roles ...accesscontrol.Role) error
}

// DefaultWriterRoles may write identity records.
var DefaultWriterRoles = []accesscontrol.Role{accesscontrol.RoleAdmin, accesscontrol.RoleRegistrar}

// Registry owns the identity map.
type Registry struct {
	mu          sync.RWMutex
	records     map[domain.Address]Identity
	authz       Authorizer
	writerRoles []accesscontrol.Role
	logger      *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithWriterRoles replaces the roles holding registry-write authority.
func WithWriterRoles(roles ...accesscontrol.Role) Option {
	return func(r *Registry) {
		r.writerRoles = roles
	}
}

func NewRegistry(authz Authorizer, opts ...Option) (*Registry, error) {
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	r := &Registry{
		records:     make(map[domain.Address]Identity),
		authz:       authz,
		writerRoles: DefaultWriterRoles,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetIdentity creates or fully overwrites the record for id.Address. Expiry may
// be in the past; writing an expired record is how verification is revoked.
func (r *Registry) SetIdentity(ctx context.Context, caller domain.Address, id Identity) error {
	if err := r.authz.RequireAnyRole(caller, r.writerRoles...); err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "identity write denied",
				"caller", caller,
				"address", id.Address,
			)
		}
		return err
	}
	if id.Address.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot set an identity for the null address")
	}

	r.mu.Lock()
	r.records[id.Address] = id
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.InfoContext(ctx, "identity set",
			"caller", caller,
			"address", id.Address,
			"verified", id.Verified,
			"jurisdiction", id.Jurisdiction,
			"expiry", id.Expiry,
		)
	}
	return nil
}

// GetIdentity returns the record for address, or the zero-value record
// (unverified, jurisdiction 0, empty role, expiry 0) if none was ever set.
func (r *Registry) GetIdentity(address domain.Address) Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.records[address]; ok {
		return id
	}
	return Identity{Address: address}
}

// IsCurrentlyVerified reports isVerified && now < expiry for address.
func (r *Registry) IsCurrentlyVerified(address domain.Address, now int64) bool {
	return r.GetIdentity(address).IsCurrentlyVerified(now)
}
