// Package genesis loads the deployment document that seeds a fresh ledger:
// the administrator, token metadata, issuance policy, the jurisdiction
// allowlist, role grants, identities, lockups and initial allocations.
package genesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/core"
	"rwaledger/internal/identity"
	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
)

// Document mirrors the YAML file.
type Document struct {
	// GenesisTime anchors relative offsets (RFC 3339). When empty they are
	// relative to the time the document is loaded.
	GenesisTime    string           `yaml:"genesis_time"`
	Admin          string           `yaml:"admin"`
	Token          Token            `yaml:"token"`
	Policy         Policy           `yaml:"policy"`
	Jurisdictions  []int            `yaml:"jurisdictions"`
	Roles          []RoleGrant      `yaml:"roles"`
	Identities     []IdentityEntry  `yaml:"identities"`
	Lockups        []LockupEntry    `yaml:"lockups"`
	RecipientRoles []RecipientEntry `yaml:"recipient_roles"`
	Allocations    []Allocation     `yaml:"allocations"`
}

type Token struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals *uint8 `yaml:"decimals"`
}

type Policy struct {
	SingleIssuance  bool     `yaml:"single_issuance"`
	RecipientLockup bool     `yaml:"recipient_lockup"`
	IssuerRoles     []string `yaml:"issuer_roles"`
	AgentRoles      []string `yaml:"agent_roles"`
	RegistryWriters []string `yaml:"registry_writers"`
}

type RoleGrant struct {
	Role    string `yaml:"role"`
	Account string `yaml:"account"`
}

// IdentityEntry sets either an absolute Expiry (Unix seconds) or ExpiresIn,
// a Go duration relative to genesis time.
type IdentityEntry struct {
	Address      string `yaml:"address"`
	Verified     bool   `yaml:"verified"`
	Jurisdiction int    `yaml:"jurisdiction"`
	Role         string `yaml:"role"`
	Expiry       int64  `yaml:"expiry"`
	ExpiresIn    string `yaml:"expires_in"`
}

type LockupEntry struct {
	Address   string `yaml:"address"`
	Release   int64  `yaml:"release"`
	ReleaseIn string `yaml:"release_in"`
}

type RecipientEntry struct {
	Address string `yaml:"address"`
	Role    string `yaml:"role"`
}

// Allocation mints Amount, in whole token units, to To. Issuer defaults to
// the admin, who then needs an issuer role from Roles.
type Allocation struct {
	To     string `yaml:"to"`
	Amount string `yaml:"amount"`
	Issuer string `yaml:"issuer"`
}

// Genesis is a validated document resolved against a genesis time.
type Genesis struct {
	Config         core.Config
	Time           int64
	Jurisdictions  []domain.Jurisdiction
	Roles          []grant
	Identities     []identity.Identity
	Lockups        []lockup
	RecipientRoles []recipientRole
	Allocations    []allocation
}

type grant struct {
	role    accesscontrol.Role
	account domain.Address
}

type lockup struct {
	address domain.Address
	release int64
}

type recipientRole struct {
	address domain.Address
	role    domain.RoleTag
}

type allocation struct {
	issuer domain.Address
	to     domain.Address
	amount *big.Int
}

const (
	defaultName     = "Acme RWA Fund"
	defaultSymbol   = "ARF"
	defaultDecimals = uint8(18)
)

// Load reads, parses and validates a genesis file.
func Load(path string, now time.Time) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}
	return Parse(data, now)
}

// Parse decodes YAML strictly; unknown keys are errors.
func Parse(data []byte, now time.Time) (*Genesis, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	return doc.Resolve(now)
}

// Resolve validates every entry and converts it to domain values. All
// problems are reported together.
func (d Document) Resolve(now time.Time) (*Genesis, error) {
	v := &validator{}
	if d.GenesisTime != "" {
		anchored, err := time.Parse(time.RFC3339, d.GenesisTime)
		if err != nil {
			v.addf("genesis_time: must be an RFC 3339 timestamp")
		} else {
			now = anchored
		}
	}
	g := &Genesis{Time: now.Unix()}

	admin := v.address("admin", d.Admin)
	if admin.IsZero() {
		v.addf("admin: must be a non-zero address")
	}

	meta := ledger.Metadata{Name: d.Token.Name, Symbol: d.Token.Symbol, Decimals: defaultDecimals}
	if meta.Name == "" {
		meta.Name = defaultName
	}
	if meta.Symbol == "" {
		meta.Symbol = defaultSymbol
	}
	if d.Token.Decimals != nil {
		meta.Decimals = *d.Token.Decimals
	}
	if meta.Decimals > domain.MaxDecimals {
		v.addf("token.decimals: must be at most %d", domain.MaxDecimals)
	}

	policy := ledger.Policy{
		SingleIssuance: d.Policy.SingleIssuance,
		IssuerRoles:    v.roles("policy.issuer_roles", d.Policy.IssuerRoles),
		AgentRoles:     v.roles("policy.agent_roles", d.Policy.AgentRoles),
	}
	if len(policy.IssuerRoles) == 0 && len(policy.AgentRoles) == 0 {
		policy = ledger.DefaultPolicy()
		policy.SingleIssuance = d.Policy.SingleIssuance
	}

	g.Config = core.Config{
		Admin:           admin,
		Metadata:        meta,
		Policy:          policy,
		RegistryWriters: v.roles("policy.registry_writers", d.Policy.RegistryWriters),
		RecipientLockup: d.Policy.RecipientLockup,
	}

	seen := make(map[domain.Jurisdiction]bool)
	for i, code := range d.Jurisdictions {
		j, err := domain.NewJurisdiction(code)
		if err != nil || j == 0 {
			v.addf("jurisdictions[%d]: %d is not a valid non-zero code", i, code)
			continue
		}
		if !seen[j] {
			seen[j] = true
			g.Jurisdictions = append(g.Jurisdictions, j)
		}
	}

	for i, r := range d.Roles {
		field := fmt.Sprintf("roles[%d]", i)
		role, err := accesscontrol.ParseRole(r.Role)
		if err != nil {
			v.addf("%s.role: %v", field, err)
		}
		account := v.address(field+".account", r.Account)
		g.Roles = append(g.Roles, grant{role: role, account: account})
	}

	for i, e := range d.Identities {
		field := fmt.Sprintf("identities[%d]", i)
		addr := v.address(field+".address", e.Address)
		j, err := domain.NewJurisdiction(e.Jurisdiction)
		if err != nil {
			v.addf("%s.jurisdiction: %v", field, err)
		}
		tag := v.roleTag(field+".role", e.Role)
		g.Identities = append(g.Identities, identity.Identity{
			Address:      addr,
			Verified:     e.Verified,
			Jurisdiction: j,
			Role:         tag,
			Expiry:       v.instant(field, "expiry", e.Expiry, "expires_in", e.ExpiresIn, g.Time),
		})
	}

	for i, e := range d.Lockups {
		field := fmt.Sprintf("lockups[%d]", i)
		g.Lockups = append(g.Lockups, lockup{
			address: v.address(field+".address", e.Address),
			release: v.instant(field, "release", e.Release, "release_in", e.ReleaseIn, g.Time),
		})
	}

	for i, e := range d.RecipientRoles {
		field := fmt.Sprintf("recipient_roles[%d]", i)
		tag := v.roleTag(field+".role", e.Role)
		if tag.IsZero() {
			v.addf("%s.role: must not be empty", field)
		}
		g.RecipientRoles = append(g.RecipientRoles, recipientRole{
			address: v.address(field+".address", e.Address),
			role:    tag,
		})
	}

	for i, e := range d.Allocations {
		field := fmt.Sprintf("allocations[%d]", i)
		issuer := admin
		if e.Issuer != "" {
			issuer = v.address(field+".issuer", e.Issuer)
		}
		amount, err := domain.ParseUnits(e.Amount, meta.Decimals)
		if err != nil {
			v.addf("%s.amount: %v", field, err)
		} else if amount.Sign() == 0 {
			v.addf("%s.amount: must be positive", field)
		}
		g.Allocations = append(g.Allocations, allocation{
			issuer: issuer,
			to:     v.address(field+".to", e.To),
			amount: amount,
		})
	}
	if policy.SingleIssuance && len(d.Allocations) > 1 {
		v.addf("allocations: single issuance permits at most one allocation")
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply replays the genesis entries through c as ordinary operations, so
// each one is authorized, validated and journaled like any later call.
// Entries run in document order: role grants, jurisdictions, identities,
// lockups, recipient roles, then allocations.
func (g *Genesis) Apply(ctx context.Context, c *core.Core) error {
	admin := g.Config.Admin
	for _, r := range g.Roles {
		if err := c.GrantRole(ctx, admin, r.role, r.account); err != nil {
			return fmt.Errorf("grant %s to %s: %w", r.role, r.account, err)
		}
	}
	for _, j := range g.Jurisdictions {
		if err := c.AllowJurisdiction(ctx, admin, j, true); err != nil {
			return fmt.Errorf("allow jurisdiction %s: %w", j, err)
		}
	}
	for _, id := range g.Identities {
		if err := c.SetIdentity(ctx, admin, id); err != nil {
			return fmt.Errorf("set identity %s: %w", id.Address, err)
		}
	}
	for _, l := range g.Lockups {
		if err := c.SetLockup(ctx, admin, l.address, l.release, g.Time); err != nil {
			return fmt.Errorf("set lockup %s: %w", l.address, err)
		}
	}
	for _, r := range g.RecipientRoles {
		if err := c.SetRequiredRoleForRecipient(ctx, admin, r.address, r.role); err != nil {
			return fmt.Errorf("set recipient role %s: %w", r.address, err)
		}
	}
	for _, a := range g.Allocations {
		if err := c.Mint(ctx, a.issuer, a.to, a.amount, g.Time); err != nil {
			return fmt.Errorf("allocate to %s: %w", a.to, err)
		}
	}
	return nil
}

type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid genesis: %w", errors.Join(v.errs...))
}

func (v *validator) address(field, s string) domain.Address {
	a, err := domain.ParseAddress(s)
	if err != nil {
		v.addf("%s: %v", field, err)
	}
	return a
}

func (v *validator) roleTag(field, s string) domain.RoleTag {
	t, err := domain.ParseRoleTag(s)
	if err != nil {
		v.addf("%s: %v", field, err)
	}
	return t
}

func (v *validator) roles(field string, names []string) []accesscontrol.Role {
	out := make([]accesscontrol.Role, 0, len(names))
	for i, name := range names {
		r, err := accesscontrol.ParseRole(name)
		if err != nil {
			v.addf("%s[%d]: %v", field, i, err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// instant resolves an absolute timestamp or a duration relative to base.
// Exactly one of the two may be set.
func (v *validator) instant(field, absKey string, abs int64, relKey, rel string, base int64) int64 {
	switch {
	case abs != 0 && rel != "":
		v.addf("%s: set %s or %s, not both", field, absKey, relKey)
		return 0
	case rel != "":
		d, err := time.ParseDuration(rel)
		if err != nil {
			v.addf("%s.%s: %v", field, relKey, err)
			return 0
		}
		return base + int64(d/time.Second)
	default:
		return abs
	}
}
