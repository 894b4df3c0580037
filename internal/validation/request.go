package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sandboxcore/core/internal/errs"
)

var (
	codeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	envKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

const (
	maxCodeIDLength = 64
	maxCodeBytes    = 10 * 1024 * 1024
	maxEnvKeys      = 50
	maxEnvBytes     = 10 * 1024
)

// forbiddenEnvKeys are user-supplied environment keys the Executor will
// never honor, regardless of request contents.
var forbiddenEnvKeys = map[string]bool{
	"PATH": true, "DENO_DIR": true, "HOME": true, "USER": true,
	"PWD": true, "SHELL": true, "HOSTNAME": true, "TMPDIR": true,
	"TEMP": true, "TMP": true,
}

// reservedEnvPrefix is reserved for the interpreter runtime itself.
const reservedEnvPrefix = "DENO_"

// RequestValidator enforces the security-sensitive rules of spec.md §4.5
// and §3 that are not well expressed as struct tags: codeId shape, path
// traversal, payload size, and environment-variable policy.
type RequestValidator struct {
	maxTimeout int
}

// NewRequestValidator creates a RequestValidator with the configured
// MaxTimeout (milliseconds).
func NewRequestValidator(maxTimeout int) *RequestValidator {
	if maxTimeout <= 0 {
		maxTimeout = 300_000
	}
	return &RequestValidator{maxTimeout: maxTimeout}
}

// CodeID validates a codeId: non-empty, ≤64 chars, matching
// [A-Za-z0-9_-]+, and rejecting any path separator or parent reference
// even if it happened to match the character class (it never can, since
// '/' and '\' are not in the class, but ".." is checked explicitly for
// defense in depth).
func (v *RequestValidator) CodeID(codeID string) *errs.Error {
	if codeID == "" {
		return errs.Validation("codeId is required", map[string]string{"field": "codeId"})
	}
	if len(codeID) > maxCodeIDLength {
		return errs.Validation("codeId exceeds maximum length", map[string]string{"field": "codeId"})
	}
	if strings.Contains(codeID, "..") || strings.ContainsAny(codeID, "/\\") {
		return errs.Validation("codeId contains a path separator or parent reference", map[string]string{"field": "codeId"})
	}
	if !codeIDPattern.MatchString(codeID) {
		return errs.Validation("codeId must match [A-Za-z0-9_-]+", map[string]string{"field": "codeId"})
	}
	return nil
}

// Timeout validates an optional timeout in [1, MaxTimeout]. A zero value
// means "not supplied"; callers substitute DefaultTimeout.
func (v *RequestValidator) Timeout(timeout int) *errs.Error {
	if timeout == 0 {
		return nil
	}
	if timeout < 1 || timeout > v.maxTimeout {
		return errs.Validation(
			fmt.Sprintf("timeout must be between 1 and %d", v.maxTimeout),
			map[string]string{"field": "timeout"},
		)
	}
	return nil
}

// Code validates and unwraps a save request's source body: non-empty, ≤10
// MiB, with the outermost ```ts/```typescript fence (if any) stripped.
// Extraction is idempotent: unwrapping an already-unwrapped source is a
// no-op, and nested fences inside the outermost one are preserved verbatim.
func (v *RequestValidator) Code(code string) (string, *errs.Error) {
	if len(code) == 0 {
		return "", errs.Validation("code is required", map[string]string{"field": "code"})
	}
	if len(code) > maxCodeBytes {
		return "", errs.Validation("code exceeds maximum size of 10 MiB", map[string]string{"field": "code"})
	}
	return ExtractFencedCode(code), nil
}

// ExtractFencedCode strips the outermost ```ts or ```typescript fence from
// source, if present. Only the fence that opens at the very start of the
// (trimmed) input and closes at its very end is unwrapped, so any fences
// nested inside are left untouched.
func ExtractFencedCode(source string) string {
	trimmed := strings.TrimSpace(source)

	for _, lang := range []string{"typescript", "ts"} {
		openFence := "```" + lang
		if !strings.HasPrefix(trimmed, openFence) {
			continue
		}
		rest := trimmed[len(openFence):]
		rest = strings.TrimPrefix(rest, "\n")
		if !strings.HasSuffix(strings.TrimRight(rest, "\n"), "```") {
			continue
		}
		closeIdx := strings.LastIndex(rest, "```")
		if closeIdx < 0 {
			continue
		}
		return strings.TrimSuffix(rest[:closeIdx], "\n")
	}
	return source
}

// Env validates the constraints of spec.md §3: key shape, key count,
// serialized size, and the forbidden/reserved-prefix set.
func (v *RequestValidator) Env(env map[string]string) *errs.Error {
	if len(env) == 0 {
		return nil
	}
	if len(env) > maxEnvKeys {
		return errs.Validation("env has too many keys", map[string]string{"field": "env", "max": "50"})
	}

	total := 0
	for key, val := range env {
		if !envKeyPattern.MatchString(key) {
			return errs.Validation(
				fmt.Sprintf("env key %q must match [A-Z][A-Z0-9_]*", key),
				map[string]string{"field": "env"},
			)
		}
		if forbiddenEnvKeys[key] {
			return errs.Validation(
				fmt.Sprintf("env key %q is forbidden", key),
				map[string]string{"field": "env"},
			)
		}
		if strings.HasPrefix(key, reservedEnvPrefix) {
			return errs.Validation(
				fmt.Sprintf("env key %q uses a reserved prefix", key),
				map[string]string{"field": "env"},
			)
		}
		total += len(key) + len(val)
	}
	if total > maxEnvBytes {
		return errs.Validation("env exceeds maximum serialized size of 10 KiB", map[string]string{"field": "env"})
	}
	return nil
}
