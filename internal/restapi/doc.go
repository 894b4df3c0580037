/*
Package restapi provides the HTTP REST API layer for the execution
front-end (HTTP Surface A).

It exposes four functional routes: PUT /workspace, POST /lint,
POST /execute, and GET /health, plus GET /metrics for Prometheus.
Everything but /health and /metrics requires a bearer token and is
subject to the per-IP sliding-window rate limiter in internal/auth.

Key Components:

  - Router: chi route configuration and middleware stack integration
  - Handler: request handlers for the four routes
  - ResponseWriter: the success/result/error envelope shared by every route
  - ChiMiddleware: CORS, coarse per-IP throttling, and security headers

Security:

  - Constant-time bearer token comparison (internal/auth)
  - Trusted-proxy-aware client IP resolution for rate limiting
  - Path-traversal and env-policy validation on every request body
  - CORS restricted to an explicit allow-list (empty by default)

See Also:

  - internal/auth: authenticator and rate limiter
  - internal/executor: sandboxed TypeScript execution and linting
  - internal/errs: error taxonomy and HTTP status mapping
  - internal/models: request/response data structures
*/
package restapi
