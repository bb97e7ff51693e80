package httptransport

import (
	"net/http"

	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := pathRole(r)
	if err != nil {
		h.fail(r.Context(), w, "get_role", err)
		return
	}
	members := h.core.Members(role)
	resp := RoleResponse{
		Role:      role.String(),
		AdminRole: h.core.RoleAdmin(role).String(),
		Members:   make([]string, 0, len(members)),
	}
	for _, m := range members {
		resp.Members = append(resp.Members, m.Hex())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetRoleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := pathRole(r)
	if err != nil {
		h.fail(ctx, w, "set_role_admin", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetRoleAdminRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.core.SetRoleAdmin(ctx, requestcontext.Caller(ctx), role, req.adminRole); err != nil {
		h.fail(ctx, w, "set_role_admin", err)
		return
	}
	h.handleGetRole(w, r)
}

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := pathRole(r)
	if err != nil {
		h.fail(ctx, w, "grant_role", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRoleRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	if err := h.core.GrantRole(ctx, requestcontext.Caller(ctx), role, req.account); err != nil {
		h.fail(ctx, w, "grant_role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RoleMembershipResponse{
		Role:    role.String(),
		Account: req.account.Hex(),
		HasRole: h.core.HasRole(role, req.account),
	})
}

func (h *Handler) handleHasRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := pathRole(r)
	if err != nil {
		h.fail(ctx, w, "has_role", err)
		return
	}
	account, err := pathAddress(r)
	if err != nil {
		h.fail(ctx, w, "has_role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RoleMembershipResponse{
		Role:    role.String(),
		Account: account.Hex(),
		HasRole: h.core.HasRole(role, account),
	})
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := pathRole(r)
	if err != nil {
		h.fail(ctx, w, "revoke_role", err)
		return
	}
	account, err := pathAddress(r)
	if err != nil {
		h.fail(ctx, w, "revoke_role", err)
		return
	}
	if err := h.core.RevokeRole(ctx, requestcontext.Caller(ctx), role, account); err != nil {
		h.fail(ctx, w, "revoke_role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRenounceRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	role, err := pathRole(r)
	if err != nil {
		h.fail(ctx, w, "renounce_role", err)
		return
	}
	if err := h.core.RenounceRole(ctx, requestcontext.Caller(ctx), role); err != nil {
		h.fail(ctx, w, "renounce_role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
