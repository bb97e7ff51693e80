package ratelimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwaledger/pkg/domain"
	"rwaledger/pkg/requestcontext"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, caller domain.Address, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/balances/x", nil)
	ctx := req.Context()
	if !caller.IsZero() {
		ctx = requestcontext.WithCaller(ctx, caller)
	}
	ctx = requestcontext.WithClientMetadata(ctx, ip, "", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestMiddleware_BurstThenReject(t *testing.T) {
	m := New(0.001, 2, quietLogger())
	h := m.Handler(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, domain.Address{}, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve(h, domain.Address{}, "10.0.0.1").Code)

	rec := serve(h, domain.Address{}, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestMiddleware_KeysAreIndependent(t *testing.T) {
	m := New(0.001, 1, quietLogger())
	h := m.Handler(okHandler())
	alice := domain.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob := domain.MustParseAddress("0x00000000000000000000000000000000000000b2")

	assert.Equal(t, http.StatusOK, serve(h, alice, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, alice, "10.0.0.1").Code)

	// same IP, different caller
	assert.Equal(t, http.StatusOK, serve(h, bob, "10.0.0.1").Code)
	// anonymous request from that IP has its own bucket too
	assert.Equal(t, http.StatusOK, serve(h, domain.Address{}, "10.0.0.1").Code)
}

func TestMiddleware_Disabled(t *testing.T) {
	m := New(0.001, 1, quietLogger(), WithDisabled(true))
	h := m.Handler(okHandler())

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(h, domain.Address{}, "10.0.0.1").Code)
	}
}

func TestMiddleware_Sweep(t *testing.T) {
	m := New(1, 1, quietLogger())
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }
	h := m.Handler(okHandler())

	serve(h, domain.Address{}, "10.0.0.1")
	serve(h, domain.Address{}, "10.0.0.2")

	now = now.Add(time.Minute)
	serve(h, domain.Address{}, "10.0.0.2")

	assert.Equal(t, 1, m.Sweep(30*time.Second))
	assert.Equal(t, 0, m.Sweep(30*time.Second))
}
