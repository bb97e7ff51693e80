// Package ratelimit throttles requests per caller with token buckets.
//
// Authenticated requests are keyed by caller address, anonymous ones by client
// IP. Idle buckets are evicted by Sweep.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "rwaledger/pkg/domain-errors"
	"rwaledger/pkg/platform/httputil"
	request "rwaledger/pkg/platform/middleware/request"
	"rwaledger/pkg/requestcontext"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Middleware holds one token bucket per key.
type Middleware struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	logger   *slog.Logger
	disabled bool
	now      func() time.Time
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// New allows perSecond sustained requests with bursts up to burst per key.
func New(perSecond float64, burst int, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := keyFor(r)
		limiter := m.limiterFor(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.burst))
		if !limiter.Allow() {
			retryAfter := m.retryAfter(limiter)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Remaining", "0")
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"request_id", request.GetRequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, limiter.Tokens()))))

		next.ServeHTTP(w, r)
	})
}

// Sweep drops buckets not used within idle and returns how many were dropped.
func (m *Middleware) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	dropped := 0
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
			dropped++
		}
	}
	return dropped
}

func (m *Middleware) limiterFor(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = m.now()
	return b.limiter
}

func (m *Middleware) retryAfter(limiter *rate.Limiter) int {
	if m.limit <= 0 {
		return 60
	}
	deficit := 1 - limiter.Tokens()
	return max(1, int(math.Ceil(deficit/float64(m.limit))))
}

func keyFor(r *http.Request) string {
	ctx := r.Context()
	if caller := requestcontext.Caller(ctx); !caller.IsZero() {
		return "caller:" + caller.Hex()
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return "ip:" + ip
	}
	return "remote:" + r.RemoteAddr
}
