package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/sandboxcore/core/internal/buildinfo"
	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/executor"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/models"
	"github.com/sandboxcore/core/internal/process"
	"github.com/sandboxcore/core/internal/validation"
	"github.com/sandboxcore/core/internal/workspace"
)

// Handler holds the dependencies every restexec route needs.
type Handler struct {
	validator *validation.RequestValidator
	store     *workspace.Store
	executor  *executor.Executor
	linter    *executor.Linter
	counter   *process.ActiveProcessCounter
}

// NewHandler wires a Handler from its component dependencies.
func NewHandler(
	validator *validation.RequestValidator,
	store *workspace.Store,
	exec *executor.Executor,
	linter *executor.Linter,
	counter *process.ActiveProcessCounter,
) *Handler {
	return &Handler{
		validator: validator,
		store:     store,
		executor:  exec,
		linter:    linter,
		counter:   counter,
	}
}

func decodeJSON(r *http.Request, v any) *errs.Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("malformed JSON request body", nil)
	}
	return nil
}

// SaveWorkspace implements PUT /workspace.
func (h *Handler) SaveWorkspace(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.WorkspaceSaveRequest
	if decErr := decodeJSON(r, &req); decErr != nil {
		rw.Fail(decErr)
		return
	}

	if vErr := h.validator.CodeID(req.CodeID); vErr != nil {
		rw.Fail(vErr)
		return
	}
	code, vErr := h.validator.Code(req.Code)
	if vErr != nil {
		rw.Fail(vErr)
		return
	}

	result, err := h.store.Save(req.CodeID, code)
	if err != nil {
		rw.Fail(errs.New(errs.KindInternal, "failed to save artifact"))
		return
	}

	rw.Success(result)
}

// Lint implements POST /lint.
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.LintRequest
	if decErr := decodeJSON(r, &req); decErr != nil {
		rw.Fail(decErr)
		return
	}
	if vErr := h.validator.CodeID(req.CodeID); vErr != nil {
		rw.Fail(vErr)
		return
	}
	if vErr := h.validator.Timeout(req.Timeout); vErr != nil {
		rw.Fail(vErr)
		return
	}

	ctx := logging.ContextWithCodeID(r.Context(), req.CodeID)
	result, lintErr := h.linter.Lint(ctx, req)
	if lintErr != nil {
		rw.Fail(lintErr)
		return
	}
	rw.Success(result)
}

// Execute implements POST /execute.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.ExecuteRequest
	if decErr := decodeJSON(r, &req); decErr != nil {
		rw.Fail(decErr)
		return
	}
	if vErr := h.validator.CodeID(req.CodeID); vErr != nil {
		rw.Fail(vErr)
		return
	}
	if vErr := h.validator.Timeout(req.Timeout); vErr != nil {
		rw.Fail(vErr)
		return
	}
	if vErr := h.validator.Env(req.Env); vErr != nil {
		rw.Fail(vErr)
		return
	}

	ctx := logging.ContextWithCodeID(r.Context(), req.CodeID)
	logging.Ctx(ctx).Debug().Msg("executing artifact")

	outcome, execErr := h.executor.Execute(ctx, req)
	if execErr != nil {
		rw.Fail(execErr)
		return
	}
	rw.Success(outcome.Result)
}

// Health implements GET /health. It is the one route that is public
// (bypasses auth) and whose response body omits executionTime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rss, heapTotal, heapUsed, external := buildinfo.MemStats()
	status := models.HealthStatusA{
		Status:          "ok",
		UptimeSeconds:   buildinfo.UptimeSeconds(),
		ActiveProcesses: h.counter.Value(),
		MemoryUsage: models.MemoryUsage{
			RSS:       rss,
			HeapTotal: heapTotal,
			HeapUsed:  heapUsed,
			External:  external,
		},
		Version: buildinfo.Version,
	}

	logging.Debug().
		Int64("active_processes", h.counter.Value()).
		Str("rss", humanize.Bytes(rss)).
		Msg("health check served")

	rw.Health(status)
}
