package httptransport

import (
	"net/http"

	"rwaledger/internal/accesscontrol"
	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)
	if err := h.core.Mint(ctx, caller, req.to, req.amount, requestcontext.LedgerTime(ctx)); err != nil {
		h.fail(ctx, w, "mint", err)
		return
	}
	h.logger.InfoContext(ctx, "minted",
		"request_id", request.GetRequestID(ctx),
		"caller", caller.Hex(),
		"to", req.to.Hex(),
		"amount", req.amount.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, MovementResponse{To: req.to.Hex(), Amount: req.amount.String()})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)
	from := req.from
	if req.From == "" {
		from = caller
	}
	if err := h.core.Transfer(ctx, caller, from, req.to, req.amount, requestcontext.LedgerTime(ctx)); err != nil {
		h.fail(ctx, w, "transfer", err)
		return
	}
	h.logger.InfoContext(ctx, "transferred",
		"request_id", request.GetRequestID(ctx),
		"caller", caller.Hex(),
		"from", from.Hex(),
		"to", req.to.Hex(),
		"amount", req.amount.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, MovementResponse{From: from.Hex(), To: req.to.Hex(), Amount: req.amount.String()})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	address, err := pathAddress(r)
	if err != nil {
		h.fail(r.Context(), w, "balance_of", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.balanceResponse(address))
}

func (h *Handler) balanceResponse(address domain.Address) BalanceResponse {
	balance := h.core.BalanceOf(address)
	return BalanceResponse{
		Address:   address.Hex(),
		Balance:   balance.String(),
		Formatted: domain.FormatUnits(balance, h.core.Metadata().Decimals),
	}
}

func (h *Handler) handleToken(w http.ResponseWriter, _ *http.Request) {
	meta := h.core.Metadata()
	policy := h.core.Policy()
	supply := h.core.TotalSupply()
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		Name:                 meta.Name,
		Symbol:               meta.Symbol,
		Decimals:             meta.Decimals,
		TotalSupply:          supply.String(),
		TotalSupplyFormatted: domain.FormatUnits(supply, meta.Decimals),
		Policy: PolicyResponse{
			SingleIssuance: policy.SingleIssuance,
			IssuerRoles:    roleNames(policy.IssuerRoles),
			AgentRoles:     roleNames(policy.AgentRoles),
		},
	})
}

// handleHolders lists every non-zero balance with the supply read in the
// same snapshot, so the two always reconcile.
func (h *Handler) handleHolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireRole(ctx, w, "holders", accesscontrol.RoleAdmin, accesscontrol.RoleTransferAgent) {
		return
	}
	holdings, supply := h.core.Holders()
	decimals := h.core.Metadata().Decimals
	resp := HoldersResponse{
		Holders:     make([]BalanceResponse, 0, len(holdings)),
		TotalSupply: supply.String(),
	}
	for _, hd := range holdings {
		resp.Holders = append(resp.Holders, BalanceResponse{
			Address:   hd.Address.Hex(),
			Balance:   hd.Balance.String(),
			Formatted: domain.FormatUnits(hd.Balance, decimals),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func roleNames(roles []accesscontrol.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}
