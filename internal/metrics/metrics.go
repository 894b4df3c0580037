// Package metrics exposes the process-wide Prometheus collectors shared by
// both sandboxcore binaries: HTTP request instrumentation, the active
// child-process gauge, rate-limit store size, and MCP session state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// activeRequests tracks in-flight HTTP requests across both surfaces.
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sandboxcore_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	// apiRequestDuration records request latency by method, path, and status.
	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sandboxcore_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// ActiveProcesses is registered for the count of live sandboxed child
	// processes. Nothing in this module sets it; the live count is kept by
	// process.ActiveProcessCounter.
	ActiveProcesses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sandboxcore_active_processes",
		Help: "Number of sandboxed child processes currently running.",
	})

	// RateLimitStoreSize reports the current entry count of the rate-limit
	// record store, so MaxEntries pressure is observable before eviction
	// starts discarding the oldest records.
	RateLimitStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sandboxcore_ratelimit_store_entries",
		Help: "Current number of entries held in the rate-limit record store.",
	})

	// MCPSessionState reports each configured MCP server's session state as
	// a gauge of 1 (set) per label combination; callers flip the previous
	// state to 0 before setting the new one.
	MCPSessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sandboxcore_mcp_session_state",
		Help: "MCP session state per server, 1 for the active state.",
	}, []string{"server", "state"})
)

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		activeRequests.Inc()
		return
	}
	activeRequests.Dec()
}

// RecordAPIRequest records the duration of a completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// SetMCPSessionState records a transition: the previous state's gauge for
// this server is zeroed and the new state's gauge is set to 1.
func SetMCPSessionState(server, previous, current string) {
	if previous != "" {
		MCPSessionState.WithLabelValues(server, previous).Set(0)
	}
	MCPSessionState.WithLabelValues(server, current).Set(1)
}
