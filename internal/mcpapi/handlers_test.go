package mcpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandboxcore/core/internal/mcpsession"
	"github.com/sandboxcore/core/internal/toolregistry"
)

func newTestHandler() *Handler {
	registry := toolregistry.New()
	manager := mcpsession.NewManager(nil, registry, time.Second, "none")
	return NewHandler(NewRequestValidator(), manager)
}

func TestCallRejectsInvalidServerNameBeforeDispatch(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{"server":"Not Valid!","toolName":"x","input":{}}`))
	rec := httptest.NewRecorder()

	h.Call(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed server name", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Validation") {
		t.Fatalf("body = %s, want a Validation error type", rec.Body.String())
	}
}

func TestCallRejectsMalformedJSON(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	h.Call(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}

func TestCallUnknownServerReturns404(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader(`{"server":"nope","toolName":"echo","input":{}}`))
	rec := httptest.NewRecorder()

	h.Call(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for ServerNotFound", rec.Code)
	}
}

func TestToolsReturnsEmptyListWhenNoServersPublished(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	rec := httptest.NewRecorder()

	h.Tools(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("body = %s, want success:true", rec.Body.String())
	}
}

func TestHealthReportsOkWithNoConfiguredServers(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s, want status ok", rec.Body.String())
	}
}
