package restapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandboxcore/core/internal/auth"
	appmiddleware "github.com/sandboxcore/core/internal/middleware"
)

// slowExecuteThresholdMS is generous relative to the middleware package's
// default: /execute legitimately runs the configured interpreter timeout
// (tens of seconds), so only genuinely stuck request handling should log
// as slow here.
const slowExecuteThresholdMS = 5_000

// Router builds and owns the chi router for HTTP Surface A.
type Router struct {
	handler       *Handler
	authenticator *auth.Authenticator
	rateLimiter   *auth.RateLimiter
	proxyConfig   auth.TrustedProxyConfig
	middleware    *ChiMiddleware
	perf          *appmiddleware.PerformanceMonitor
	chi           chi.Router
}

// NewRouter builds the chi router, mounting every route spec.md §4.7 names.
func NewRouter(
	handler *Handler,
	authenticator *auth.Authenticator,
	rateLimiter *auth.RateLimiter,
	proxyConfig auth.TrustedProxyConfig,
	middlewareConfig *ChiMiddlewareConfig,
) *Router {
	router := &Router{
		handler:       handler,
		authenticator: authenticator,
		rateLimiter:   rateLimiter,
		proxyConfig:   proxyConfig,
		middleware:    NewChiMiddleware(middlewareConfig),
		perf:          appmiddleware.NewPerformanceMonitor(500).SetSurface("restexec", slowExecuteThresholdMS),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestIDWithLogging())
	r.Use(router.middleware.CORS())
	r.Use(router.middleware.RateLimit())
	r.Use(APISecurityHeaders())
	r.Use(appmiddleware.PrometheusMetricsMiddleware)
	r.Use(router.perf.Middleware)
	r.Use(appmiddleware.CompressionMiddleware)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(router.authenticateMiddleware)
		r.Put("/workspace", handler.SaveWorkspace)
		r.Post("/lint", handler.Lint)
		r.Post("/execute", handler.Execute)
	})

	router.chi = r
	return router
}

// ServeHTTP implements http.Handler.
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.chi.ServeHTTP(w, r)
}

// PerformanceStats returns the current per-endpoint latency stats for this
// surface's recent request window.
func (router *Router) PerformanceStats() []appmiddleware.EndpointStats {
	return router.perf.GetStats()
}

// authenticateMiddleware first rejects clients the sliding-window rate
// limiter has blocked, then runs the bearer-token check and records a
// failure with the limiter when it fails. Both run before the handler
// validates the body, per spec.md §5 ("authentication precedes validation").
func (router *Router) authenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := auth.ResolveClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), router.proxyConfig)

		if blockErr := router.rateLimiter.Check(clientIP); blockErr != nil {
			NewResponseWriter(w, r).Fail(blockErr)
			return
		}

		if authErr := router.authenticator.Authenticate(r, clientIP); authErr != nil {
			router.rateLimiter.RecordFailure(clientIP)
			NewResponseWriter(w, r).Fail(authErr)
			return
		}

		next.ServeHTTP(w, r)
	})
}
