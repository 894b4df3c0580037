package mcpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sandboxcore/core/internal/buildinfo"
	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/mcpsession"
	"github.com/sandboxcore/core/internal/models"
)

// Handler holds the dependencies every gateway route needs.
type Handler struct {
	validator *RequestValidator
	manager   *mcpsession.Manager
}

// NewHandler wires a Handler from its component dependencies.
func NewHandler(validator *RequestValidator, manager *mcpsession.Manager) *Handler {
	return &Handler{validator: validator, manager: manager}
}

func decodeJSON(r *http.Request, v any) *errs.Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("malformed JSON request body", nil)
	}
	return nil
}

// Call implements POST /mcp/call.
func (h *Handler) Call(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.MCPCallRequest
	if decErr := decodeJSON(r, &req); decErr != nil {
		rw.Fail(decErr)
		return
	}
	if vErr := h.validator.Server(req.Server); vErr != nil {
		rw.Fail(vErr)
		return
	}
	if vErr := h.validator.ToolName(req.ToolName); vErr != nil {
		rw.Fail(vErr)
		return
	}
	if vErr := h.validator.Input(req.Input); vErr != nil {
		rw.Fail(vErr)
		return
	}

	ctx := logging.ContextWithMCPServer(r.Context(), req.Server)
	logging.Ctx(ctx).Debug().Str("tool", req.ToolName).Msg("dispatching mcp call")

	outcome, callErr := h.manager.Call(ctx, req.Server, req.ToolName, req.Input, 0)
	if callErr != nil {
		rw.Fail(callErr)
		return
	}
	rw.Success(outcome.Result)
}

// Tools implements GET /mcp/tools.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]any{"tools": h.manager.Tools()})
}

// Health implements GET /health. It is public (bypasses auth).
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status, servers := h.manager.HealthSnapshot()
	rw.Health(models.HealthStatusB{
		Status:        status,
		UptimeSeconds: buildinfo.UptimeSeconds(),
		Servers:       servers,
	})
}
