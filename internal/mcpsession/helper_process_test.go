package mcpsession

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

// TestHelperProcessMCPServer is not a real test: it is re-exec'd as a
// subprocess (the standard os/exec-test helper-process pattern) to stand
// in for a real MCP child. It answers initialize, tools/list, ping, and
// tools/call over line-delimited JSON-RPC on stdin/stdout, and otherwise
// no-ops when run as a normal test.
func TestHelperProcessMCPServer(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	runFakeMCPServer()
	os.Exit(0)
}

func runFakeMCPServer() {
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var req map[string]any
			if jsonErr := json.Unmarshal(bytes.TrimSpace(line), &req); jsonErr == nil {
				respondFake(req)
			}
		}
		if err != nil {
			return
		}
	}
}

func respondFake(req map[string]any) {
	method, _ := req["method"].(string)
	id, hasID := req["id"]
	if !hasID {
		return // notification: no response expected
	}

	if os.Getenv("GO_FAKE_MCP_FAIL_TOOLS") == "1" && method == "tools/call" {
		writeFrame(map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"error":   map[string]any{"code": -32601, "message": "method not found"},
		})
		return
	}

	var result any
	switch method {
	case "initialize":
		result = map[string]any{"protocolVersion": "2024-11-05"}
	case "tools/list":
		result = map[string]any{
			"tools": []map[string]any{
				{"name": "echo", "description": "echoes input", "inputSchema": map[string]any{}},
			},
		}
	case "ping":
		result = map[string]any{}
	case "tools/call":
		result = map[string]any{
			"isError": false,
			"content": []map[string]any{{"type": "text", "text": "pong"}},
		}
	default:
		writeFrame(map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"error":   map[string]any{"code": -32601, "message": "method not found"},
		})
		return
	}
	writeFrame(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func writeFrame(v map[string]any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')
	os.Stdout.Write(b)
}
