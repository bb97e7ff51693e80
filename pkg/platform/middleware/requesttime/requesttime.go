// Package requesttime provides middleware for request-scoped time.
//
// All operations within a single HTTP request use the same "now": the wall
// clock captured on entry, and a logical ledger time that defaults to it but
// may be pinned by the caller with the X-Ledger-Time header (Unix seconds).
// Pinning lets operators replay or pre-evaluate rules at a chosen instant.
// Routes that change ledger state decide separately whether to honour a pin;
// LedgerTimePinned in requestcontext reports that one was sent.
package requesttime

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"

	dErrors "rwaledger/pkg/domain-errors"
)

// HeaderLedgerTime pins the logical now for ledger operations.
const HeaderLedgerTime = "X-Ledger-Time"

// Middleware captures the current time at the start of the request and the
// optional ledger time override.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), time.Now())

			if raw := r.Header.Get(HeaderLedgerTime); raw != "" {
				ts, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || ts < 0 {
					logger.WarnContext(ctx, "invalid ledger time header",
						"request_id", request.GetRequestID(ctx),
						"value", raw,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, HeaderLedgerTime+" must be non-negative unix seconds"))
					return
				}
				ctx = requestcontext.WithLedgerTime(ctx, ts)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
