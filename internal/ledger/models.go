package ledger

import (
	"math/big"

	"rwaledger/internal/accesscontrol"
	"rwaledger/pkg/domain"
)

// Metadata describes the instrument. Decimals is presentation only; balances
// are always held in the smallest unit.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Policy configures who may issue and move value.
type Policy struct {
	// SingleIssuance permits mint only while total supply is zero.
	SingleIssuance bool
	// IssuerRoles may mint.
	IssuerRoles []accesscontrol.Role
	// AgentRoles may transfer on behalf of other holders.
	AgentRoles []accesscontrol.Role
}

// DefaultPolicy allows repeated issuance by MINTER or TRANSFER_AGENT and
// forced transfers by TRANSFER_AGENT.
func DefaultPolicy() Policy {
	return Policy{
		IssuerRoles: []accesscontrol.Role{accesscontrol.RoleMinter, accesscontrol.RoleTransferAgent},
		AgentRoles:  []accesscontrol.Role{accesscontrol.RoleTransferAgent},
	}
}

// Holding is one non-zero balance.
type Holding struct {
	Address domain.Address
	Balance *big.Int
}
