package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sandboxcore/core/internal/logging"
)

// RequestMetrics tracks performance metrics for one HTTP request.
type RequestMetrics struct {
	Path       string
	Method     string
	DurationMS int64
	StatusCode int
	Timestamp  time.Time
	CacheHit   bool
	QueryCount int
	// Surface names which binding recorded this sample: "restexec" or
	// "mcp-gateway". Left empty for a monitor that was never tagged
	// with SetSurface.
	Surface string
}

// PerformanceMonitor tracks latency and status-code statistics over a
// sliding window of recent requests, per HTTP surface.
type PerformanceMonitor struct {
	mu              sync.RWMutex
	metrics         []RequestMetrics
	maxMetrics      int
	requestCounts   map[string]int64
	totalDuration   map[string]int64
	surface         string
	slowThresholdMS int64
}

// EndpointStats contains aggregated statistics for an endpoint.
type EndpointStats struct {
	Path         string
	RequestCount int64
	AvgDuration  float64
	P50Duration  int64
	P95Duration  int64
	P99Duration  int64
	MinDuration  int64
	MaxDuration  int64
	Surface      string
}

// defaultSlowThresholdMS is the fallback logged-as-slow cutoff for a
// monitor that hasn't called SetSurface. restexec's /execute can
// legitimately run for many seconds (it's bounded by the interpreter's own
// timeout, not this threshold), so both sandboxcore surfaces override it
// via SetSurface rather than relying on this default in production.
const defaultSlowThresholdMS = 1000

// NewPerformanceMonitor creates a performance monitor holding up to
// maxMetrics samples in its sliding window.
func NewPerformanceMonitor(maxMetrics int) *PerformanceMonitor {
	return &PerformanceMonitor{
		metrics:         make([]RequestMetrics, 0, maxMetrics),
		maxMetrics:      maxMetrics,
		requestCounts:   make(map[string]int64),
		totalDuration:   make(map[string]int64),
		slowThresholdMS: defaultSlowThresholdMS,
	}
}

// SetSurface tags every metric this monitor subsequently records with the
// given surface name and overrides the slow-request log threshold. Returns
// the same monitor for chaining at construction time.
func (pm *PerformanceMonitor) SetSurface(surface string, slowThresholdMS int64) *PerformanceMonitor {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.surface = surface
	pm.slowThresholdMS = slowThresholdMS
	return pm
}

// RecordRequest adds a request metric
func (pm *PerformanceMonitor) RecordRequest(metric *RequestMetrics) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Add metric to sliding window
	if metric.Surface == "" {
		metric.Surface = pm.surface
	}
	pm.metrics = append(pm.metrics, *metric)
	if len(pm.metrics) > pm.maxMetrics {
		pm.metrics = pm.metrics[1:]
	}

	// Update aggregate stats
	key := metric.Method + " " + metric.Path
	pm.requestCounts[key]++
	pm.totalDuration[key] += metric.DurationMS
}

// GetStats returns aggregated statistics for all endpoints
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	// Group metrics by endpoint
	endpointMetrics := make(map[string][]int64)
	endpointSurface := make(map[string]string)
	for _, m := range pm.metrics {
		key := m.Method + " " + m.Path
		endpointMetrics[key] = append(endpointMetrics[key], m.DurationMS)
		endpointSurface[key] = m.Surface
	}

	// Calculate statistics for each endpoint
	stats := make([]EndpointStats, 0, len(endpointMetrics))
	for endpoint, durations := range endpointMetrics {
		if len(durations) == 0 {
			continue
		}

		// Sort durations for percentile calculations
		sorted := make([]int64, len(durations))
		copy(sorted, durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		// Calculate statistics
		var sum int64
		for _, d := range sorted {
			sum += d
		}

		stat := EndpointStats{
			Path:         endpoint,
			RequestCount: int64(len(sorted)),
			AvgDuration:  float64(sum) / float64(len(sorted)),
			P50Duration:  percentile(sorted, 0.50),
			P95Duration:  percentile(sorted, 0.95),
			P99Duration:  percentile(sorted, 0.99),
			MinDuration:  sorted[0],
			MaxDuration:  sorted[len(sorted)-1],
			Surface:      endpointSurface[endpoint],
		}

		stats = append(stats, stat)
	}

	// Sort by request count descending
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].RequestCount > stats[j].RequestCount
	})

	return stats
}

// GetRecentMetrics returns the most recent N metrics
func (pm *PerformanceMonitor) GetRecentMetrics(n int) []RequestMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if n > len(pm.metrics) {
		n = len(pm.metrics)
	}

	recent := make([]RequestMetrics, n)
	copy(recent, pm.metrics[len(pm.metrics)-n:])
	return recent
}

// LogSlowRequests logs requests that exceed the threshold
func (pm *PerformanceMonitor) LogSlowRequests(thresholdMS int64) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, m := range pm.metrics {
		if m.DurationMS > thresholdMS {
			logging.Warn().
				Str("method", m.Method).
				Str("path", m.Path).
				Int64("duration_ms", m.DurationMS).
				Int64("threshold_ms", thresholdMS).
				Msg("Slow request detected")
		}
	}
}

// Middleware creates an HTTP middleware for performance monitoring
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapper := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start).Milliseconds()

		// Record metric
		pm.RecordRequest(&RequestMetrics{
			Path:       r.URL.Path,
			Method:     r.Method,
			DurationMS: duration,
			StatusCode: wrapper.statusCode,
			Timestamp:  time.Now(),
		})

		threshold := pm.slowThresholdMS
		if threshold == 0 {
			threshold = defaultSlowThresholdMS
		}
		if duration > threshold {
			logging.Warn().
				Str("surface", pm.surface).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int64("duration_ms", duration).
				Int64("threshold_ms", threshold).
				Msg("slow request detected")
		}
	})
}

// percentile calculates the percentile value from a sorted slice
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
