package restapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandboxcore/core/internal/auth"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	handler := newTestHandlerWithRealPipeline(t)
	authenticator := auth.New(auth.Config{Enabled: true, APIKey: "correct-key"}, nil)
	rateLimiter := auth.NewRateLimiter(auth.DefaultRateLimitConfig())
	return NewRouter(handler, authenticator, rateLimiter, auth.TrustedProxyConfig{}, DefaultChiMiddlewareConfig())
}

// TestAuthenticatedRouteRejectsMissingTokenBeforeValidation is the literal
// "unauthenticated request rejected before validation runs" scenario: a
// malformed body (invalid codeId) must still come back as 401, not 400,
// because authenticateMiddleware runs before the handler ever decodes it.
func TestAuthenticatedRouteRejectsMissingTokenBeforeValidation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/workspace", strings.NewReader(`{"codeId":"../escape","code":"x"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for missing bearer token even with an invalid body", rec.Code)
	}
}

func TestAuthenticatedRouteAcceptsValidToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/workspace", strings.NewReader(`{"codeId":"tok-ok","code":"x"}`))
	req.Header.Set("Authorization", "Bearer correct-key")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a valid bearer token, body = %s", rec.Code, rec.Body.String())
	}
}

// TestHealthAndMetricsBypassAuthentication checks that the public routes
// are mounted outside the authenticated group.
func TestHealthAndMetricsBypassAuthentication(t *testing.T) {
	router := newTestRouter(t)

	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	router.ServeHTTP(healthRec, healthReq)
	if healthRec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200 without credentials", healthRec.Code)
	}

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	router.ServeHTTP(metricsRec, metricsReq)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200 without credentials", metricsRec.Code)
	}
}

// TestRepeatedAuthFailuresTriggerRateLimitBlock exercises the RecordFailure
// path wired into authenticateMiddleware: enough bad-token attempts from
// the same client IP must eventually come back 429 instead of 401.
func TestRepeatedAuthFailuresTriggerRateLimitBlock(t *testing.T) {
	handler := newTestHandlerWithRealPipeline(t)
	authenticator := auth.New(auth.Config{Enabled: true, APIKey: "correct-key"}, nil)
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 2, WindowMs: int64(time.Minute / time.Millisecond), MaxEntries: 10})
	router := NewRouter(handler, authenticator, rateLimiter, auth.TrustedProxyConfig{}, DefaultChiMiddlewareConfig())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPut, "/workspace", strings.NewReader(`{"codeId":"x","code":"y"}`))
		req.Header.Set("Authorization", "Bearer wrong-key")
		req.RemoteAddr = "198.51.100.7:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("status after repeated failures = %d, want 429", lastCode)
	}
}
