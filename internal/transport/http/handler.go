// Package httptransport exposes the ledger core as a JSON capability API.
//
// Handlers parse and validate input, read the caller and ledger time bound by
// middleware, and delegate to the core. They hold no ledger state.
package httptransport

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rwaledger/internal/accesscontrol"
	"rwaledger/internal/auth"
	"rwaledger/internal/compliance"
	"rwaledger/internal/identity"
	"rwaledger/internal/ledger"
	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

// Ledger is the serialized core as seen by the transport.
type Ledger interface {
	GrantRole(ctx context.Context, caller domain.Address, role accesscontrol.Role, account domain.Address) error
	RevokeRole(ctx context.Context, caller domain.Address, role accesscontrol.Role, account domain.Address) error
	RenounceRole(ctx context.Context, caller domain.Address, role accesscontrol.Role) error
	SetRoleAdmin(ctx context.Context, caller domain.Address, role, adminRole accesscontrol.Role) error
	HasRole(role accesscontrol.Role, account domain.Address) bool
	Members(role accesscontrol.Role) []domain.Address
	RoleAdmin(role accesscontrol.Role) accesscontrol.Role

	SetIdentity(ctx context.Context, caller domain.Address, id identity.Identity) error
	GetIdentity(address domain.Address) identity.Identity

	AllowJurisdiction(ctx context.Context, caller domain.Address, code domain.Jurisdiction, allowed bool) error
	IsJurisdictionAllowed(code domain.Jurisdiction) bool
	AllowedJurisdictions() []domain.Jurisdiction
	SetLockup(ctx context.Context, caller, address domain.Address, release, now int64) error
	LockupOf(address domain.Address) (int64, bool)
	SetRequiredRoleForRecipient(ctx context.Context, caller, address domain.Address, role domain.RoleTag) error
	RequiredRoleFor(address domain.Address) (domain.RoleTag, bool)
	CheckTransfer(ctx context.Context, from, to domain.Address, amount *big.Int, now int64) compliance.Decision
	CheckMint(ctx context.Context, to domain.Address, amount *big.Int, now int64) compliance.Decision

	Mint(ctx context.Context, caller, to domain.Address, amount *big.Int, now int64) error
	Transfer(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) error
	BalanceOf(address domain.Address) *big.Int
	TotalSupply() *big.Int
	Metadata() ledger.Metadata
	Policy() ledger.Policy
	Holders() ([]ledger.Holding, *big.Int)

	Sequence() uint64
	RecordOperatorEvent(ctx context.Context, action audit.AuditEvent, subject, detail string)
}

// AuditReader serves journal queries.
type AuditReader interface {
	List(ctx context.Context, address string) ([]audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// TokenService issues and revokes operator bearer tokens.
type TokenService interface {
	Issue(ctx context.Context, subject domain.Address, label string, ttl time.Duration) (auth.IssuedToken, error)
	Revoke(ctx context.Context, token string) (string, error)
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// Handler serves every ledger route.
type Handler struct {
	core   Ledger
	audit  AuditReader
	tokens TokenService
	logger *slog.Logger
}

func New(core Ledger, auditReader AuditReader, tokens TokenService, logger *slog.Logger) *Handler {
	return &Handler{
		core:   core,
		audit:  auditReader,
		tokens: tokens,
		logger: logger,
	}
}

// Register mounts the authenticated capability routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/identities/{address}", func(r chi.Router) {
		r.With(h.adminPinnedTime).Put("/", h.handleSetIdentity)
		r.Get("/", h.handleGetIdentity)
	})

	r.Route("/compliance", func(r chi.Router) {
		r.Get("/jurisdictions", h.handleListJurisdictions)
		r.With(h.adminPinnedTime).Put("/jurisdictions/{code}", h.handleAllowJurisdiction)
		r.Get("/jurisdictions/{code}", h.handleGetJurisdiction)
		r.With(h.adminPinnedTime).Put("/lockups/{address}", h.handleSetLockup)
		r.Get("/lockups/{address}", h.handleGetLockup)
		r.With(h.adminPinnedTime).Put("/recipient-roles/{address}", h.handleSetRecipientRole)
		r.Get("/recipient-roles/{address}", h.handleGetRecipientRole)
		r.Post("/check", h.handleCheck)
	})

	r.Route("/ledger", func(r chi.Router) {
		r.With(h.adminPinnedTime).Post("/mint", h.handleMint)
		r.With(h.adminPinnedTime).Post("/transfer", h.handleTransfer)
		r.Get("/balances/{address}", h.handleBalance)
		r.Get("/token", h.handleToken)
		r.Get("/holders", h.handleHolders)
	})

	r.Route("/access/roles/{role}", func(r chi.Router) {
		r.Get("/", h.handleGetRole)
		r.Put("/admin", h.handleSetRoleAdmin)
		r.Post("/members", h.handleGrantRole)
		r.Get("/members/{address}", h.handleHasRole)
		r.Delete("/members/{address}", h.handleRevokeRole)
		r.Post("/renounce", h.handleRenounceRole)
	})

	r.Get("/audit/events", h.handleAuditEvents)
}

// RegisterAdmin mounts the operator token routes. They sit behind the admin
// token middleware rather than bearer auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/tokens", h.handleIssueToken)
	r.Post("/admin/tokens/revoke", h.handleRevokeToken)
}

// RegisterHealth mounts unauthenticated health checks.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sequence": h.core.Sequence(),
	})
}

// adminPinnedTime evaluates a state change at the request's wall-clock time
// unless the caller holds ADMIN. A holder must not choose the instant its own
// lockup and identity expiry are judged at. Checks and reads keep the pin.
func (h *Handler) adminPinnedTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if requestcontext.LedgerTimePinned(ctx) && !h.core.HasRole(accesscontrol.RoleAdmin, requestcontext.Caller(ctx)) {
			h.logger.WarnContext(ctx, "ignoring pinned ledger time",
				"request_id", request.GetRequestID(ctx),
				"caller", callerHex(ctx),
				"pinned", requestcontext.LedgerTime(ctx),
			)
			ctx = requestcontext.WithLedgerTime(ctx, requestcontext.Now(ctx).Unix())
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// fail logs at a level matching the error class and writes the response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"operation", op,
		"request_id", request.GetRequestID(ctx),
		"caller", callerHex(ctx),
		"code", code,
		"error", err,
	}
	if reason, ok := compliance.ReasonOf(err); ok {
		attrs = append(attrs, "reason", reason)
	}
	if httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

// requireRole guards read endpoints that expose data about other holders.
func (h *Handler) requireRole(ctx context.Context, w http.ResponseWriter, op string, roles ...accesscontrol.Role) bool {
	caller := requestcontext.Caller(ctx)
	for _, role := range roles {
		if h.core.HasRole(role, caller) {
			return true
		}
	}
	h.fail(ctx, w, op, dErrors.New(dErrors.CodeForbidden, "caller lacks the required role"))
	return false
}

func pathAddress(r *http.Request) (domain.Address, error) {
	return domain.ParseAddress(chi.URLParam(r, "address"))
}

func pathRole(r *http.Request) (accesscontrol.Role, error) {
	return accesscontrol.ParseRole(chi.URLParam(r, "role"))
}

func pathJurisdiction(r *http.Request) (domain.Jurisdiction, error) {
	return domain.ParseJurisdiction(chi.URLParam(r, "code"))
}

func callerHex(ctx context.Context) string {
	if caller := requestcontext.Caller(ctx); !caller.IsZero() {
		return caller.Hex()
	}
	return ""
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultAuditLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(n, maxAuditLimit), nil
}
