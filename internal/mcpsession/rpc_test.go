package mcpsession

import "testing"

func TestRpcErrorImplementsError(t *testing.T) {
	e := &rpcError{Code: -32601, Message: "method not found"}
	if e.Error() == "" {
		t.Fatal("Error() returned empty string")
	}
}

func TestIsUnknownToolMatchesJSONRPCMethodNotFound(t *testing.T) {
	e := &rpcError{Code: -32601, Message: "method not found"}
	if !e.isUnknownTool() {
		t.Fatal("isUnknownTool() = false, want true for code -32601")
	}
}

func TestIsUnknownToolFalseForOtherCodes(t *testing.T) {
	e := &rpcError{Code: -32000, Message: "internal error"}
	if e.isUnknownTool() {
		t.Fatal("isUnknownTool() = true, want false for non -32601 code")
	}
}

func TestIsUnknownToolNilSafe(t *testing.T) {
	var e *rpcError
	if e.isUnknownTool() {
		t.Fatal("isUnknownTool() on nil receiver = true, want false")
	}
}

func TestFirstTextOrFallbackPrefersText(t *testing.T) {
	items := []toolContentItem{
		{Type: "image", Text: ""},
		{Type: "text", Text: "hello"},
	}
	if got := firstTextOrFallback(items); got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestFirstTextOrFallbackNonTextVariant(t *testing.T) {
	items := []toolContentItem{{Type: "image"}}
	got := firstTextOrFallback(items)
	if got != "non-text tool output (type: image)" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstTextOrFallbackEmpty(t *testing.T) {
	got := firstTextOrFallback(nil)
	if got != "tool reported an error with no content" {
		t.Fatalf("got %q", got)
	}
}
