// Package auth authenticates bearer tokens and binds the caller address.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"rwaledger/pkg/domain"
	"rwaledger/pkg/platform/sentinel"
	"rwaledger/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is what the middleware needs from a validated token.
type JWTClaims struct {
	// Subject is the caller's address.
	Subject string
	JTI     string
}

// rejection is a failed authentication: what the client sees and what we log.
type rejection struct {
	status int
	code   string
	desc   string
	reason string
	err    error
}

var errBadToken = rejection{status: http.StatusUnauthorized, code: "unauthorized", desc: "Invalid or expired token"}

func (rj rejection) because(reason string, err error) *rejection {
	rj.reason = reason
	rj.err = err
	return &rj
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the token subject as the caller address. A nil revocation checker
// skips the revocation lookup.
func RequireAuth(validator JWTValidator, revocations TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller, jti, rej := authenticate(ctx, r.Header.Get("Authorization"), validator, revocations)
			if rej != nil {
				level := slog.LevelWarn
				if rej.status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(ctx, level, "request not authenticated",
					"reason", rej.reason,
					"error", rej.err,
					"jti", jti,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(rej.status)
				_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, rej.code, rej.desc))
				return
			}

			ctx = requestcontext.WithCaller(ctx, caller)
			ctx = requestcontext.WithTokenID(ctx, jti)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, header string, validator JWTValidator, revocations TokenRevocationChecker) (domain.Address, string, *rejection) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return domain.Address{}, "", &rejection{
			status: http.StatusUnauthorized, code: "unauthorized",
			desc: "Missing or invalid Authorization header", reason: "missing token",
		}
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		return domain.Address{}, "", errBadToken.because("invalid token", err)
	}
	caller, err := domain.ParseAddress(claims.Subject)
	if err != nil || caller.IsZero() {
		return domain.Address{}, claims.JTI, errBadToken.because("subject is not an address", err)
	}
	if revocations == nil {
		return caller, claims.JTI, nil
	}
	if claims.JTI == "" {
		return domain.Address{}, "", errBadToken.because("missing jti", nil)
	}

	revoked, err := revocations.IsTokenRevoked(ctx, claims.JTI)
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return domain.Address{}, claims.JTI, &rejection{
			status: http.StatusServiceUnavailable, code: "service_unavailable",
			desc: "Token revocation list unavailable", reason: "revocation check failed", err: err,
		}
	case err != nil:
		return domain.Address{}, claims.JTI, &rejection{
			status: http.StatusInternalServerError, code: "internal_error",
			desc: "Failed to validate token", reason: "revocation check failed", err: err,
		}
	case revoked:
		return domain.Address{}, claims.JTI, &rejection{
			status: http.StatusUnauthorized, code: "unauthorized",
			desc: "Token has been revoked", reason: "revoked",
		}
	}
	return caller, claims.JTI, nil
}
