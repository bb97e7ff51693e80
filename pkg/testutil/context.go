package testutil

import (
	"net/http"
	"time"

	"rwaledger/pkg/domain"
	"rwaledger/pkg/requestcontext"
)

// WithCaller binds caller to the request the way the auth middleware would.
// Invalid addresses are silently ignored so the request stays anonymous.
func WithCaller(req *http.Request, caller string) *http.Request {
	addr, err := domain.ParseAddress(caller)
	if err != nil || addr.IsZero() {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
}

// WithLedgerTime pins the logical clock seen by the handler.
func WithLedgerTime(req *http.Request, unix int64) *http.Request {
	return req.WithContext(requestcontext.WithLedgerTime(req.Context(), unix))
}

// WithRequestTime sets the wall-clock arrival time of the request.
func WithRequestTime(req *http.Request, unix int64) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), time.Unix(unix, 0)))
}

// AsCallerAt is the typical state of an authenticated ledger request that
// arrived at unix.
func AsCallerAt(req *http.Request, caller string, unix int64) *http.Request {
	return WithRequestTime(WithCaller(req, caller), unix)
}
