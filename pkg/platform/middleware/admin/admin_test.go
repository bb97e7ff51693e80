package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name     string
		expected string
		sent     string
		want     int
	}{
		{name: "matching token", expected: "s3cret", sent: "s3cret", want: http.StatusOK},
		{name: "wrong token", expected: "s3cret", sent: "guess", want: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", sent: "", want: http.StatusUnauthorized},
		{name: "unconfigured hides the routes", expected: "", sent: "", want: http.StatusNotFound},
		{name: "unconfigured ignores any token", expected: "", sent: "guess", want: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/tokens", nil)
			if tc.sent != "" {
				req.Header.Set(HeaderAdminToken, tc.sent)
			}
			rec := httptest.NewRecorder()
			RequireAdminToken(tc.expected, logger)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
