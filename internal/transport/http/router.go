// Package httptransport assembles the agent's HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"dim/internal/platform/health"
	"dim/internal/platform/metrics"
	"dim/internal/session/device"
	adminmw "dim/pkg/platform/middleware/admin"
	authmw "dim/pkg/platform/middleware/auth"
	devicemw "dim/pkg/platform/middleware/device"
	"dim/pkg/platform/middleware/metadata"
	"dim/pkg/platform/middleware/request"
	"dim/pkg/platform/middleware/requesttime"
)

// Routes is a handler that mounts its own routes.
type Routes interface {
	Register(r chi.Router)
}

// PublicRoutes is a handler with routes that relying parties call directly.
type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

// SessionRoutes is the login handler: public challenge routes plus routes
// that need a verified session.
type SessionRoutes interface {
	PublicRoutes
	RegisterProtected(r chi.Router)
}

// Config wires the router.
type Config struct {
	Logger *slog.Logger
	Health *health.Handler

	// Public is mounted without authentication.
	Public []Routes
	// Management is the operator API of this agent. It is guarded by the
	// admin token when one is configured.
	Management []Routes
	// Verifiers expose their public routes, such as proof verification.
	Verifiers []PublicRoutes

	Sessions    SessionRoutes
	Tokens      authmw.TokenValidator
	Revocations authmw.RevocationChecker

	// AuthLimit and VerifyLimit throttle the public login and proof
	// verification routes. Nil means unlimited.
	AuthLimit   func(http.Handler) http.Handler
	VerifyLimit func(http.Handler) http.Handler

	// CORSOrigins enables CORS for browser wallets and relying parties.
	CORSOrigins []string

	AdminToken     string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metadata       *metadata.Config
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 1 << 20
	deviceCookieName      = "dim_device"
)

// NewRouter wires all endpoints with the shared middleware stack.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = defaultMaxBodyBytes
	}
	meta := cfg.Metadata
	if meta == nil {
		meta = metadata.DefaultConfig()
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Admin-Token", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         600,
		}).Handler)
	}
	r.Use(metadata.NewMiddleware(meta).Handler)
	r.Use(devicemw.Device(&devicemw.DeviceConfig{
		CookieName:    deviceCookieName,
		FingerprintFn: device.Fingerprint,
		LabelFn:       device.Label,
	}))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(httpMetrics))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.BodyLimit(maxBody))
		r.Use(request.ContentTypeJSON)

		for _, h := range cfg.Public {
			h.Register(r)
		}
		r.Group(func(r chi.Router) {
			if cfg.VerifyLimit != nil {
				r.Use(cfg.VerifyLimit)
			}
			for _, h := range cfg.Verifiers {
				h.RegisterPublic(r)
			}
		})

		if cfg.Sessions != nil {
			r.Group(func(r chi.Router) {
				if cfg.AuthLimit != nil {
					r.Use(cfg.AuthLimit)
				}
				cfg.Sessions.RegisterPublic(r)
			})
			if cfg.Tokens != nil {
				r.Group(func(r chi.Router) {
					r.Use(authmw.RequireSession(cfg.Tokens, cfg.Revocations, logger))
					cfg.Sessions.RegisterProtected(r)
				})
			}
		}

		r.Group(func(r chi.Router) {
			if cfg.AdminToken != "" {
				r.Use(adminmw.RequireAdminToken(cfg.AdminToken, logger))
			}
			for _, h := range cfg.Management {
				h.Register(r)
			}
		})
	})

	return r
}

var httpMetrics = request.NewMetrics()
