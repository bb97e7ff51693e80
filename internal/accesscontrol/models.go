package accesscontrol

import (
	"strings"

	dErrors "rwaledger/pkg/domain-errors"
)

// Role names a capability set. Roles are access-control roles (who may call
// what), distinct from identity role tags used for recipient eligibility.
type Role string

const (
	// RoleAdmin administers every other role and all compliance rules.
	RoleAdmin Role = "ADMIN"
	// RoleRegistrar may write identity records on the admin's behalf.
	RoleRegistrar Role = "REGISTRAR"
	// RoleTransferAgent may issue and move holdings on behalf of others.
	RoleTransferAgent Role = "TRANSFER_AGENT"
	// RoleMinter may issue new units.
	RoleMinter Role = "MINTER"
)

// ParseRole normalizes and validates a role name. Custom roles are allowed;
// they must be upper-snake-case so they cannot collide with typos of well-known ones.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be at most 64 characters")
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "role must be upper-case letters, digits or underscores")
		}
	}
	return Role(s), nil
}

func (r Role) String() string {
	return string(r)
}
