package httptransport

import (
	"net/http"
	"time"

	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
)

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[IssueTokenRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	issued, err := h.tokens.Issue(ctx, req.subject, req.Label, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.fail(ctx, w, "issue_token", err)
		return
	}
	h.core.RecordOperatorEvent(ctx, audit.EventTokenIssued, issued.Subject.Hex(), issued.JTI)
	httputil.WriteJSON(w, http.StatusCreated, IssueTokenResponse{
		Token:     issued.Token,
		TokenID:   issued.JTI,
		Subject:   issued.Subject.Hex(),
		ExpiresAt: issued.ExpiresAt.UTC(),
	})
}

func (h *Handler) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RevokeTokenRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	jti, err := h.tokens.Revoke(ctx, req.Token)
	if err != nil {
		h.fail(ctx, w, "revoke_token", err)
		return
	}
	h.core.RecordOperatorEvent(ctx, audit.EventTokenRevoked, "", jti)
	httputil.WriteJSON(w, http.StatusOK, RevokeTokenResponse{TokenID: jti, Revoked: true})
}
