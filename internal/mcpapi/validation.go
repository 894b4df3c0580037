package mcpapi

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/sandboxcore/core/internal/errs"
)

const (
	maxServerNameLength = 50
	maxToolNameLength    = 128
	maxInputBytes        = 1 * 1024 * 1024
	maxInputDepth        = 32
)

var dnsLabelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// forbiddenInputKeys names object keys a tool-call input must never carry:
// the input is forwarded verbatim to MCP servers, some of which run on
// JS/TS runtimes where these keys reach into prototype pollution.
var forbiddenInputKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// RequestValidator enforces the defense-in-depth rules a POST /mcp/call
// body must satisfy before it ever reaches a session: non-empty,
// size-bounded server and tool names, and a bounded input payload. This
// does not check whether the server or tool actually exists — that is
// the call path's job, and surfaces as ServerNotFound/ToolNotFound
// rather than Validation.
type RequestValidator struct{}

// NewRequestValidator creates a RequestValidator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{}
}

// Server validates the server field's shape.
func (v *RequestValidator) Server(server string) *errs.Error {
	if server == "" {
		return errs.Validation("server is required", map[string]string{"field": "server"})
	}
	if len(server) > maxServerNameLength {
		return errs.Validation("server exceeds maximum length", map[string]string{"field": "server"})
	}
	if !dnsLabelPattern.MatchString(server) {
		return errs.Validation("server must be a DNS-label-shaped name", map[string]string{"field": "server"})
	}
	return nil
}

// ToolName validates the toolName field's shape.
func (v *RequestValidator) ToolName(toolName string) *errs.Error {
	if toolName == "" {
		return errs.Validation("toolName is required", map[string]string{"field": "toolName"})
	}
	if len(toolName) > maxToolNameLength {
		return errs.Validation("toolName exceeds maximum length", map[string]string{"field": "toolName"})
	}
	return nil
}

// Input validates the input payload: size, nesting depth, and a forbidden-
// key sweep. Beyond that its shape is opaque — the core never interprets
// tool arguments, it only forwards them — so an empty or non-object/array
// payload (a bare string, number, or null) is accepted without further
// walking.
func (v *RequestValidator) Input(input []byte) *errs.Error {
	if len(input) > maxInputBytes {
		return errs.Validation("input exceeds maximum size of 1 MiB", map[string]string{"field": "input"})
	}
	if len(input) == 0 {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(input, &parsed); err != nil {
		return errs.Validation("input must be valid JSON", map[string]string{"field": "input"})
	}
	return walkInput(parsed, 1)
}

// walkInput recursively checks a decoded JSON value against the nesting-
// depth bound and the forbidden-key set, depth-first.
func walkInput(v any, depth int) *errs.Error {
	if depth > maxInputDepth {
		return errs.Validation(
			fmt.Sprintf("input exceeds maximum nesting depth of %d", maxInputDepth),
			map[string]string{"field": "input"},
		)
	}

	switch t := v.(type) {
	case map[string]any:
		for key, val := range t {
			if forbiddenInputKeys[key] {
				return errs.Validation(
					fmt.Sprintf("input key %q is forbidden", key),
					map[string]string{"field": "input"},
				)
			}
			if err := walkInput(val, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range t {
			if err := walkInput(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
