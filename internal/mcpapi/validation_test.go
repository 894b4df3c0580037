package mcpapi

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sandboxcore/core/internal/errs"
)

func TestServerValidationAcceptsDNSLabel(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Server("github-tools"); err != nil {
		t.Fatalf("Server(valid) = %v, want nil", err)
	}
}

func TestServerValidationRejectsEmpty(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Server(""); err == nil {
		t.Fatal("Server(\"\") = nil, want Validation error")
	}
}

func TestServerValidationRejectsUppercase(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Server("GitHub"); err == nil {
		t.Fatal("Server(uppercase) = nil, want Validation error")
	}
}

func TestServerValidationRejectsLeadingHyphen(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Server("-github"); err == nil {
		t.Fatal("Server(leading hyphen) = nil, want Validation error")
	}
}

func TestServerValidationRejectsTooLong(t *testing.T) {
	v := NewRequestValidator()
	long := bytes.Repeat([]byte("a"), maxServerNameLength+1)
	if err := v.Server(string(long)); err == nil {
		t.Fatal("Server(too long) = nil, want Validation error")
	}
}

func TestToolNameValidationRejectsEmpty(t *testing.T) {
	v := NewRequestValidator()
	if err := v.ToolName(""); err == nil {
		t.Fatal("ToolName(\"\") = nil, want Validation error")
	}
}

func TestToolNameValidationAcceptsNormalName(t *testing.T) {
	v := NewRequestValidator()
	if err := v.ToolName("search_repositories"); err != nil {
		t.Fatalf("ToolName(valid) = %v, want nil", err)
	}
}

// TestInputValidationRejectsOversizedPayload is the oversized-input
// rejection scenario: a payload over 1 MiB must be rejected before it
// ever reaches a session.
func TestInputValidationRejectsOversizedPayload(t *testing.T) {
	v := NewRequestValidator()
	oversized := bytes.Repeat([]byte("a"), maxInputBytes+1)
	if err := v.Input(oversized); err == nil {
		t.Fatal("Input(oversized) = nil, want Validation error")
	}
}

func TestInputValidationAcceptsSmallPayload(t *testing.T) {
	v := NewRequestValidator()
	if err := v.Input([]byte(`{"q":"test"}`)); err != nil {
		t.Fatalf("Input(small) = %v, want nil", err)
	}
}

func TestInputValidationRejectsForbiddenKey(t *testing.T) {
	v := NewRequestValidator()
	err := v.Input([]byte(`{"__proto__":{"polluted":true}}`))
	if err == nil {
		t.Fatal("Input(forbidden key) = nil, want Validation error")
	}
	if err.Kind != errs.KindValidation {
		t.Fatalf("Kind = %v, want Validation", err.Kind)
	}
}

// TestInputValidationRejectsExcessiveNestingDepth builds a payload nested
// deeper than maxInputDepth and checks it is rejected rather than walked
// indefinitely.
func TestInputValidationRejectsExcessiveNestingDepth(t *testing.T) {
	v := NewRequestValidator()

	payload := `"bottom"`
	for i := 0; i < maxInputDepth+5; i++ {
		payload = `{"n":` + payload + `}`
	}

	err := v.Input([]byte(payload))
	if err == nil {
		t.Fatal("Input(deeply nested) = nil, want Validation error")
	}
	if err.Kind != errs.KindValidation {
		t.Fatalf("Kind = %v, want Validation", err.Kind)
	}
	if !strings.Contains(err.Message, "nesting depth") {
		t.Fatalf("Message = %q, want it to mention nesting depth", err.Message)
	}
}

func TestInputValidationAcceptsDeeplyNestedButWithinBound(t *testing.T) {
	v := NewRequestValidator()

	payload := `"bottom"`
	for i := 0; i < maxInputDepth-2; i++ {
		payload = `{"n":` + payload + `}`
	}

	if err := v.Input([]byte(payload)); err != nil {
		t.Fatalf("Input(within bound) = %v, want nil", err)
	}
}
