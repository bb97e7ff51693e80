package identity

import "rwaledger/pkg/domain"

// Identity is the set of verified facts held about one address.
// A record whose Expiry has passed is treated exactly like Verified=false.
type Identity struct {
	Address      domain.Address
	Verified     bool
	Jurisdiction domain.Jurisdiction
	Role         domain.RoleTag
	// Expiry is a Unix timestamp; the record stops being trusted at this instant.
	Expiry int64
}

// IsCurrentlyVerified is the only verification check other components may use.
func (i Identity) IsCurrentlyVerified(now int64) bool {
	return i.Verified && now < i.Expiry
}
