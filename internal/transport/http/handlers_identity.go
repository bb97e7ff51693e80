package httptransport

import (
	"net/http"

	"rwaledger/internal/identity"
	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

func (h *Handler) handleSetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address, err := pathAddress(r)
	if err != nil {
		h.fail(ctx, w, "set_identity", err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetIdentityRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}

	err = h.core.SetIdentity(ctx, requestcontext.Caller(ctx), identity.Identity{
		Address:      address,
		Verified:     req.Verified,
		Jurisdiction: req.jurisdiction,
		Role:         req.role,
		Expiry:       req.Expiry,
	})
	if err != nil {
		h.fail(ctx, w, "set_identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.identityResponse(r, address))
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		h.fail(r.Context(), w, "get_identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.identityResponse(r, address))
}

func (h *Handler) identityResponse(r *http.Request, address domain.Address) IdentityResponse {
	now := requestcontext.LedgerTime(r.Context())
	id := h.core.GetIdentity(address)
	return IdentityResponse{
		Address:           address.Hex(),
		Verified:          id.Verified,
		Jurisdiction:      int(id.Jurisdiction),
		Role:              id.Role.String(),
		Expiry:            id.Expiry,
		CurrentlyVerified: id.IsCurrentlyVerified(now),
		EvaluatedAt:       now,
	}
}
