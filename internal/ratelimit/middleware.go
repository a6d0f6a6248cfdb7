package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
)

// Policy is the request budget for one class of routes.
type Policy struct {
	Class  string
	Limit  int
	Window time.Duration
}

// Limiter admits requests per client IP under a Policy.
type Limiter struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func New(store Store, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{store: store, policy: policy, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware rejects requests over budget with 429. A store failure lets the
// request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		if ip == "" {
			ip = "unknown"
		}
		res, err := l.store.AllowN(ctx, l.policy.Class+":"+ip, 1, l.policy.Limit, l.policy.Window)
		if err != nil {
			storeErrorsTotal.Inc()
			l.logger.WarnContext(ctx, "rate limit check failed", "class", l.policy.Class, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, res)
		if !res.Allowed {
			rejectedTotal.WithLabelValues(l.policy.Class).Inc()
			writeRateLimitExceeded(w, res)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, res *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *Result) {
	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry after "+strconv.Itoa(res.RetryAfter)+"s"))
}
