package mcpapi

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
	handler := newTestHandler()
	authenticator := auth.New(auth.Config{Enabled: true, APIKey: "correct-key"}, nil)
	rateLimiter := auth.NewRateLimiter(auth.DefaultRateLimitConfig())
	return NewRouter(handler, authenticator, rateLimiter, auth.TrustedProxyConfig{}, DefaultChiMiddlewareConfig())
}

// TestAuthenticatedRouteRejectsMissingTokenBeforeValidation mirrors the
// restexec surface's literal scenario: a malformed body must still come
// back 401 (not 400) when no bearer token is presented, because
// authenticateMiddleware runs ahead of the handler's own validation.
func TestAuthenticatedRouteRejectsMissingTokenBeforeValidation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{"server":"Not Valid!","toolName":"","input":{}}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for missing bearer token even with an invalid body", rec.Code)
	}
}

func TestAuthenticatedRouteAcceptsValidTokenThenValidates(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{"server":"Not Valid!","toolName":"x","input":{}}`))
	req.Header.Set("Authorization", "Bearer correct-key")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 once authenticated, since the server name is still invalid", rec.Code)
	}
}

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

func TestRepeatedAuthFailuresTriggerRateLimitBlock(t *testing.T) {
	handler := newTestHandler()
	authenticator := auth.New(auth.Config{Enabled: true, APIKey: "correct-key"}, nil)
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 2, WindowMs: int64(time.Minute / time.Millisecond), MaxEntries: 10})
	router := NewRouter(handler, authenticator, rateLimiter, auth.TrustedProxyConfig{}, DefaultChiMiddlewareConfig())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{"server":"x","toolName":"x","input":{}}`))
		req.Header.Set("Authorization", "Bearer wrong-key")
		req.RemoteAddr = "198.51.100.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("status after repeated failures = %d, want 429", lastCode)
	}
}
