package httptransport

import (
	"context"
	"net/http"

	"rwaledger/internal/compliance"
	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

func (h *Handler) handleListJurisdictions(w http.ResponseWriter, r *http.Request) {
	codes := h.core.AllowedJurisdictions()
	resp := JurisdictionListResponse{Allowed: make([]int, 0, len(codes))}
	for _, c := range codes {
		resp.Allowed = append(resp.Allowed, int(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAllowJurisdiction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := pathJurisdiction(r)
	if err != nil {
		h.fail(ctx, w, "allow_jurisdiction", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AllowJurisdictionRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.core.AllowJurisdiction(ctx, requestcontext.Caller(ctx), code, *req.Allowed); err != nil {
		h.fail(ctx, w, "allow_jurisdiction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, JurisdictionResponse{Code: int(code), Allowed: h.core.IsJurisdictionAllowed(code)})
}

func (h *Handler) handleGetJurisdiction(w http.ResponseWriter, r *http.Request) {
	code, err := pathJurisdiction(r)
	if err != nil {
		h.fail(r.Context(), w, "get_jurisdiction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, JurisdictionResponse{Code: int(code), Allowed: h.core.IsJurisdictionAllowed(code)})
}

func (h *Handler) handleSetLockup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := pathAddress(r)
	if err != nil {
		h.fail(ctx, w, "set_lockup", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetLockupRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	now := requestcontext.LedgerTime(ctx)
	if err := h.core.SetLockup(ctx, requestcontext.Caller(ctx), address, req.Release, now); err != nil {
		h.fail(ctx, w, "set_lockup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.lockupResponse(ctx, address))
}

func (h *Handler) handleGetLockup(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		h.fail(r.Context(), w, "get_lockup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.lockupResponse(r.Context(), address))
}

// lockupResponse reports a stored release that has already passed as not
// locked, matching what a transfer would see at the same ledger time.
func (h *Handler) lockupResponse(ctx context.Context, address domain.Address) LockupResponse {
	release, ok := h.core.LockupOf(address)
	return LockupResponse{
		Address: address.Hex(),
		Locked:  ok && requestcontext.LedgerTime(ctx) < release,
		Release: release,
	}
}

func (h *Handler) handleSetRecipientRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := pathAddress(r)
	if err != nil {
		h.fail(ctx, w, "set_recipient_role", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetRecipientRoleRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.core.SetRequiredRoleForRecipient(ctx, requestcontext.Caller(ctx), address, req.role); err != nil {
		h.fail(ctx, w, "set_recipient_role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.recipientRoleResponse(address))
}

func (h *Handler) handleGetRecipientRole(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		h.fail(r.Context(), w, "get_recipient_role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.recipientRoleResponse(address))
}

func (h *Handler) recipientRoleResponse(address domain.Address) RecipientRoleResponse {
	role, gated := h.core.RequiredRoleFor(address)
	resp := RecipientRoleResponse{Address: address.Hex(), Gated: gated}
	if gated {
		resp.Role = role.String()
	}
	return resp
}

// handleCheck evaluates a transfer or mint without applying it. A denial is
// a successful evaluation and is returned with 200.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	now := requestcontext.LedgerTime(ctx)

	var decision compliance.Decision
	if req.Mint {
		decision = h.core.CheckMint(ctx, req.to, req.amount, now)
	} else {
		decision = h.core.CheckTransfer(ctx, req.from, req.to, req.amount, now)
	}
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{
		Allowed:     decision.Allowed,
		Reason:      string(decision.Reason),
		EvaluatedAt: now,
	})
}
