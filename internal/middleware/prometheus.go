package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sandboxcore/core/internal/metrics"
)

// PrometheusMetrics wraps an http.HandlerFunc to record request duration,
// status, and in-flight count.
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()

		wrapper := &metricsResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(wrapper, r)

		duration := time.Since(start)

		metrics.RecordAPIRequest(
			r.Method,
			r.URL.Path,
			strconv.Itoa(wrapper.statusCode),
			duration,
		)
	}
}

// PrometheusMetricsMiddleware adapts PrometheusMetrics to the
// func(http.Handler) http.Handler shape chi's Router.Use expects.
func PrometheusMetricsMiddleware(next http.Handler) http.Handler {
	return PrometheusMetrics(next.ServeHTTP)
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
