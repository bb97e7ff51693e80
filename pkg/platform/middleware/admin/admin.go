// Package admin guards the operator endpoints that mint and revoke bearer
// tokens.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"rwaledger/pkg/requestcontext"
)

// HeaderAdminToken carries the operator secret.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken admits requests presenting expectedToken. With no token
// configured the guarded routes answer 404 as if they did not exist.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reject(w, http.StatusNotFound, "not_found", "operator endpoints are disabled")
			})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sent := r.Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(sent), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
					"token_present", sent != "",
				)
				reject(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + desc + `"}`))
}
