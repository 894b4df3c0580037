package restapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
)

// successEnvelope and failureEnvelope are the two halves of the
// discriminated response shape every restexec route uses:
// {success:true, result, executionTime} on success, or
// {success:false, error:{type, message, details?}, executionTime?} on
// failure. executionTime is omitted only for the pre-auth /health probe.
// Result has no omitempty: a nil result (an execution with no output)
// must still serialize as the literal "result":null, not a missing key.
type successEnvelope struct {
	Success       bool   `json:"success"`
	Result        any    `json:"result"`
	ExecutionTime *int64 `json:"executionTime,omitempty"`
}

type failureEnvelope struct {
	Success       bool       `json:"success"`
	Error         *errorBody `json:"error"`
	ExecutionTime *int64     `json:"executionTime,omitempty"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ResponseWriter tracks a single request's t0 so every response, success or
// failure, can attach the elapsed executionTime the spec requires.
type ResponseWriter struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

// NewResponseWriter creates a response writer that records t0 as now.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, start: time.Now()}
}

func (rw *ResponseWriter) elapsedMillis() int64 {
	return time.Since(rw.start).Milliseconds()
}

// Success writes a 200 response with the given result and executionTime.
func (rw *ResponseWriter) Success(result any) {
	elapsed := rw.elapsedMillis()
	rw.writeJSON(http.StatusOK, successEnvelope{
		Success:       true,
		Result:        result,
		ExecutionTime: &elapsed,
	})
}

// Health writes the /health response body, which has no executionTime field.
func (rw *ResponseWriter) Health(status any) {
	rw.writeJSON(http.StatusOK, status)
}

// Fail writes an error response mapped from a structured *errs.Error. The
// RequestID is attached via the surrounding request-logging middleware, not
// the body, so the wire shape matches spec.md exactly.
func (rw *ResponseWriter) Fail(err *errs.Error) {
	status := err.StatusCode(errs.SurfaceRestExec)

	if err.Kind == errs.KindRateLimit && err.RetryAfterSeconds > 0 {
		rw.w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfterSeconds))
	}

	elapsed := rw.elapsedMillis()
	rw.writeJSON(status, failureEnvelope{
		Success: false,
		Error: &errorBody{
			Type:    string(err.Kind),
			Message: err.Message,
			Details: err.Details,
		},
		ExecutionTime: &elapsed,
	})
}

func (rw *ResponseWriter) writeJSON(statusCode int, data any) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}
