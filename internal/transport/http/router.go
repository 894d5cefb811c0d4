package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gonogo/internal/platform/metrics"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/httputil"
	"gonogo/pkg/platform/middleware/admin"
	"gonogo/pkg/platform/middleware/apikey"
	"gonogo/pkg/platform/middleware/metadata"
	"gonogo/pkg/platform/middleware/requestid"
	"gonogo/pkg/platform/middleware/requesttime"
	"gonogo/pkg/requestcontext"
)

// Registrar mounts a module's public endpoints.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts a module's admin endpoints on a token-guarded router.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// Modules are the per-module handlers served under /v1.
type Modules struct {
	Decision Registrar
	Jobs     Registrar
	Audit    Registrar
	SizeStd  Registrar
	Admin    []AdminRegistrar
	Health   *Health
}

type routerConfig struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	rateLimit  func(http.Handler) http.Handler
	apiKey     string
	adminToken string
}

type Option func(*routerConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *routerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *routerConfig) { c.metrics = m }
}

// WithRateLimit installs the admission middleware on every guarded route.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(c *routerConfig) { c.rateLimit = mw }
}

// WithAPIKey requires X-API-Key on guarded routes. Empty leaves them open.
func WithAPIKey(key string) Option {
	return func(c *routerConfig) { c.apiKey = key }
}

// WithAdminToken enables admin routes. Empty disables them.
func WithAdminToken(token string) Option {
	return func(c *routerConfig) { c.adminToken = token }
}

// NewRouter assembles the public API. Health and /metrics stay outside the
// caller identity, rate limit and API key chain.
func NewRouter(mods Modules, opts ...Option) http.Handler {
	cfg := &routerConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(recoverer(cfg.logger))
	r.Use(instrument(cfg.metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:            "method_not_allowed",
			ErrorDescription: "method not allowed",
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		if mods.Health != nil {
			v1.Get("/health", mods.Health.ServeHTTP)
		}

		v1.Group(func(g chi.Router) {
			g.Use(apikey.Identify(cfg.apiKey))
			if cfg.rateLimit != nil {
				g.Use(cfg.rateLimit)
			}
			g.Use(apikey.Require(cfg.apiKey, cfg.logger))

			for _, m := range []Registrar{mods.Decision, mods.Jobs, mods.Audit, mods.SizeStd} {
				if m != nil {
					m.Register(g)
				}
			}
		})

		if len(mods.Admin) > 0 {
			v1.Group(func(g chi.Router) {
				g.Use(apikey.Identify(cfg.apiKey))
				if cfg.rateLimit != nil {
					g.Use(cfg.rateLimit)
				}
				g.Use(admin.RequireAdminToken(cfg.adminToken, cfg.logger))
				for _, m := range mods.Admin {
					m.RegisterAdmin(g)
				}
			})
		}
	})

	return r
}

// instrument records request counts and latency by route pattern so IDs in
// paths do not explode label cardinality.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, status, time.Since(start).Seconds())
		})
	}
}

func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic serving request",
						"request_id", requestcontext.RequestID(ctx),
						"path", r.URL.Path,
						"panic", rec,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
