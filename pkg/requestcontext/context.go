// Package requestcontext carries request-scoped values from middleware to the
// ledger core without the core importing net/http.
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.LedgerTime(ctx)
//
// Tests that skip the middleware chain set the values directly:
//
//	ctx = requestcontext.WithCaller(ctx, admin)
//	ctx = requestcontext.WithLedgerTime(ctx, 1_700_000_000)
package requestcontext

import (
	"context"
	"time"

	"rwaledger/pkg/domain"
)

type (
	callerKey      struct{}
	tokenIDKey     struct{}
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	ledgerTimeKey  struct{}
)

// client is what the metadata middleware learns about the remote end.
type client struct {
	ip        string
	userAgent string
	name      string
}

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// Caller is the authenticated caller address, or the zero address.
func Caller(ctx context.Context) domain.Address {
	caller, _ := value[domain.Address](ctx, callerKey{})
	return caller
}

func WithCaller(ctx context.Context, caller domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// TokenID is the jti of the bearer token that authenticated the request.
func TokenID(ctx context.Context) string {
	jti, _ := value[string](ctx, tokenIDKey{})
	return jti
}

func WithTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, tokenIDKey{}, jti)
}

func ClientIP(ctx context.Context) string {
	c, _ := value[client](ctx, clientKey{})
	return c.ip
}

func UserAgent(ctx context.Context) string {
	c, _ := value[client](ctx, clientKey{})
	return c.userAgent
}

// ClientName is the parsed user agent, e.g. "curl 8.4.0".
func ClientName(ctx context.Context) string {
	c, _ := value[client](ctx, clientKey{})
	return c.name
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent, clientName string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent, name: clientName})
}

func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey{})
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the wall-clock time the request arrived, or time.Now outside a
// request.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// LedgerTime is the logical now, in Unix seconds, that ledger operations are
// evaluated at. It defaults to the request time.
func LedgerTime(ctx context.Context) int64 {
	if t, ok := value[int64](ctx, ledgerTimeKey{}); ok {
		return t
	}
	return Now(ctx).Unix()
}

// LedgerTimePinned reports whether the ledger time was set explicitly rather
// than taken from the request time.
func LedgerTimePinned(ctx context.Context) bool {
	_, ok := value[int64](ctx, ledgerTimeKey{})
	return ok
}

func WithLedgerTime(ctx context.Context, unix int64) context.Context {
	return context.WithValue(ctx, ledgerTimeKey{}, unix)
}
