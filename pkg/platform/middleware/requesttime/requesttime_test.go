package requesttime

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwaledger/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var ledgerTime int64
	var called bool
	h := Middleware(logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		called = true
		ledgerTime = requestcontext.LedgerTime(r.Context())
	}))

	t.Run("defaults to wall clock", func(t *testing.T) {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Positive(t, ledgerTime)
	})

	t.Run("header pins ledger time", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderLedgerTime, "1700000000")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, int64(1_700_000_000), ledgerTime)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderLedgerTime, "-5")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})
}
