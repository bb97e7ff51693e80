package httptransport

import (
	"net/http"

	"rwaledger/internal/accesscontrol"
	"rwaledger/pkg/domain"
	audit "rwaledger/pkg/platform/audit"
	"rwaledger/pkg/platform/httputil"
)

// handleAuditEvents returns journal entries touching ?subject=, or the most
// recent entries when no subject is given. ADMIN only.
func (h *Handler) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireRole(ctx, w, "audit_events", accesscontrol.RoleAdmin) {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.fail(ctx, w, "audit_events", err)
		return
	}

	var events []audit.Event
	if raw := r.URL.Query().Get("subject"); raw != "" {
		subject, perr := domain.ParseAddress(raw)
		if perr != nil {
			h.fail(ctx, w, "audit_events", perr)
			return
		}
		events, err = h.audit.List(ctx, subject.Hex())
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
	} else {
		events, err = h.audit.Recent(ctx, limit)
	}
	if err != nil {
		h.fail(ctx, w, "audit_events", err)
		return
	}

	resp := AuditEventsResponse{Events: make([]AuditEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, AuditEventResponse{
			Sequence:     e.Sequence,
			Category:     string(e.Category),
			Action:       e.Action,
			Decision:     e.Decision,
			Reason:       e.Reason,
			Caller:       e.Caller,
			Subject:      e.Subject,
			Counterparty: e.Counterparty,
			Amount:       e.Amount,
			Role:         e.Role,
			Detail:       e.Detail,
			LedgerTime:   e.LedgerTime,
			Timestamp:    e.Timestamp,
			RequestID:    e.RequestID,
			Client:       e.Client,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
