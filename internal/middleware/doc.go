/*
Package middleware provides the gzip compression, latency tracking, and
Prometheus instrumentation layered onto both sandboxcore HTTP surfaces.
Request ID generation lives in each surface's own chi_middleware.go (it
needs to run ahead of logging.ContextWithNewCorrelationID), not here.

Key Components:

  - Compression: gzip for clients that advertise Accept-Encoding: gzip
  - PerformanceMonitor: per-surface latency window with percentile stats
  - Prometheus: HTTP request/response instrumentation via internal/metrics

Wiring:

Both internal/restapi and internal/mcpapi mount these in their chi
routers, each with its own PerformanceMonitor tagged by SetSurface so
EndpointStats and slow-request logs can be told apart:

	router.perf = middleware.NewPerformanceMonitor(500).SetSurface("restexec", slowExecuteThresholdMS)
	r.Use(appmiddleware.PrometheusMetricsMiddleware)
	r.Use(router.perf.Middleware)
	r.Use(appmiddleware.CompressionMiddleware)

restexec's /execute can legitimately run for the interpreter's full
timeout, so its slow-request threshold is set well above the package
default; the gateway's /mcp/call threshold is set above typical tool
latency but still short enough to catch a wedged server.

See Also:

  - internal/auth: authentication and rate-limit middleware
  - internal/metrics: Prometheus collector definitions
  - internal/restapi, internal/mcpapi: chi routers that mount this package
*/
package middleware
