// Package accesscontrol holds role membership and answers "may this caller do that".
//
// Every role has an admin role (ADMIN unless configured otherwise); only holders
// of the admin role may grant or revoke it. ADMIN administers itself. At genesis
// exactly one address holds ADMIN, and the last ADMIN can never be removed.
package accesscontrol

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

// Service is the role-membership store.
type Service struct {
	mu      sync.RWMutex
	members map[Role]map[domain.Address]struct{}
	admins  map[Role]Role
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New seeds genesisAdmin as the sole ADMIN.
func New(genesisAdmin domain.Address, opts ...Option) (*Service, error) {
	if genesisAdmin.IsZero() {
		return nil, errors.New("genesis admin is required")
	}
	s := &Service{
		members: map[Role]map[domain.Address]struct{}{
			RoleAdmin: {genesisAdmin: {}},
		},
		admins: make(map[Role]Role),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HasRole reports whether account holds role.
func (s *Service) HasRole(role Role, account domain.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasRoleLocked(role, account)
}

// HasAnyRole reports whether account holds at least one of roles.
func (s *Service) HasAnyRole(account domain.Address, roles ...Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range roles {
		if s.hasRoleLocked(role, account) {
			return true
		}
	}
	return false
}

// RequireAnyRole returns a forbidden error unless caller holds one of roles.
func (s *Service) RequireAnyRole(caller domain.Address, roles ...Role) error {
	if s.HasAnyRole(caller, roles...) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller lacks required role")
}

// RoleAdmin returns the role whose holders administer role.
func (s *Service) RoleAdmin(role Role) Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleAdminLocked(role)
}

// SetRoleAdmin changes which role administers role. ADMIN only; ADMIN's own
// admin role cannot be changed.
func (s *Service) SetRoleAdmin(ctx context.Context, caller domain.Address, role, adminRole Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRoleLocked(RoleAdmin, caller) {
		return s.denied(ctx, caller, "set_role_admin", role)
	}
	if role == RoleAdmin {
		return dErrors.New(dErrors.CodeConflict, "ADMIN is self-administering")
	}
	s.admins[role] = adminRole
	return nil
}

// GrantRole adds account to role. Granting an already-held role is a no-op.
func (s *Service) GrantRole(ctx context.Context, caller domain.Address, role Role, account domain.Address) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot grant a role to the null address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRoleLocked(s.roleAdminLocked(role), caller) {
		return s.denied(ctx, caller, "grant_role", role)
	}
	set, ok := s.members[role]
	if !ok {
		set = make(map[domain.Address]struct{})
		s.members[role] = set
	}
	set[account] = struct{}{}
	return nil
}

// RevokeRole removes account from role. Revoking an absent membership is a no-op.
func (s *Service) RevokeRole(ctx context.Context, caller domain.Address, role Role, account domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRoleLocked(s.roleAdminLocked(role), caller) {
		return s.denied(ctx, caller, "revoke_role", role)
	}
	return s.removeLocked(role, account)
}

// RenounceRole lets a holder drop its own membership.
func (s *Service) RenounceRole(_ context.Context, caller domain.Address, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(role, caller)
}

// Members lists the holders of role in address order.
func (s *Service) Members(role Role) []domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Address, 0, len(s.members[role]))
	for a := range s.members[role] {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.Address) int {
		return slices.Compare(a[:], b[:])
	})
	return out
}

func (s *Service) removeLocked(role Role, account domain.Address) error {
	set := s.members[role]
	if _, ok := set[account]; !ok {
		return nil
	}
	if role == RoleAdmin && len(set) == 1 {
		return dErrors.New(dErrors.CodeConflict, "cannot remove the last ADMIN")
	}
	delete(set, account)
	return nil
}

func (s *Service) hasRoleLocked(role Role, account domain.Address) bool {
	_, ok := s.members[role][account]
	return ok
}

func (s *Service) roleAdminLocked(role Role) Role {
	if admin, ok := s.admins[role]; ok {
		return admin
	}
	return RoleAdmin
}

func (s *Service) denied(ctx context.Context, caller domain.Address, op string, role Role) error {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "role change denied",
			"caller", caller,
			"operation", op,
			"role", role,
		)
	}
	return dErrors.New(dErrors.CodeForbidden, "caller lacks the admin role for "+string(role))
}
