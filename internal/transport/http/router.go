package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rwaledger/internal/platform/metrics"
	adminmw "rwaledger/pkg/platform/middleware/admin"
	authmw "rwaledger/pkg/platform/middleware/auth"
	"rwaledger/pkg/platform/middleware/metadata"
	"rwaledger/pkg/platform/middleware/ratelimit"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/platform/middleware/requesttime"
)

// RouterConfig collects what the router needs beyond the handler.
type RouterConfig struct {
	Validator   authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	AdminToken  string
	RateLimit   *ratelimit.Middleware
	Metrics     *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter mounts health and metrics without auth, the operator token routes
// behind the admin token, and every ledger route behind bearer auth and the
// per-caller rate limit.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	h.RegisterHealth(r)
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		h.RegisterAdmin(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Validator, cfg.Revocations, cfg.Logger))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.Handler)
		}
		h.Register(r)
	})

	return r
}
