// Package models holds the wire and internal data shapes shared across
// restexec and the MCP gateway: execution requests/results, lint output,
// and the MCP server/tool/session descriptors.
package models

import "encoding/json"

// WorkspaceSaveRequest is the body of PUT /workspace.
type WorkspaceSaveRequest struct {
	CodeID string `json:"codeId"`
	Code   string `json:"code"`
}

// WorkspaceSaveResult is the result payload of a successful save.
type WorkspaceSaveResult struct {
	CodeID   string `json:"codeId"`
	FilePath string `json:"filePath"`
	Size     int    `json:"size"`
}

// LintRequest is the body of POST /lint.
type LintRequest struct {
	CodeID  string `json:"codeId"`
	Timeout int    `json:"timeout,omitempty"`
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	CodeID  string            `json:"codeId"`
	Timeout int               `json:"timeout,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// LintResult is the structured document the interpreter's lint subcommand
// emits. Diagnostics are kept as opaque json.RawMessage entries: the core
// never interprets individual diagnostic fields, since the TS dialect they
// describe is out of scope.
type LintResult struct {
	Version      int               `json:"version"`
	Diagnostics  []json.RawMessage `json:"diagnostics"`
	Errors       []json.RawMessage `json:"errors"`
	CheckedFiles []string          `json:"checkedFiles"`
}

// EmptyLintResult is the normalized result for an empty lint stdout.
func EmptyLintResult() *LintResult {
	return &LintResult{
		Version:      1,
		Diagnostics:  []json.RawMessage{},
		Errors:       []json.RawMessage{},
		CheckedFiles: []string{},
	}
}

// ExecutionOutcome is the internal (non-wire) result of running a saved
// artifact. Result is either nil, a parsed JSON value, or a raw string
// wrapper, matching the Executor's output-parsing rule. StdoutBytes and
// StderrBytes record byte counts only (never content) for safe logging.
type ExecutionOutcome struct {
	Success       bool
	Result        any
	ExitCode      int
	Signal        string
	ElapsedMillis int64
	StdoutBytes   int
	StderrBytes   int
}

// MemoryUsage mirrors the runtime memory figures /health reports.
type MemoryUsage struct {
	RSS       uint64 `json:"rss"`
	HeapTotal uint64 `json:"heapTotal"`
	HeapUsed  uint64 `json:"heapUsed"`
	External  uint64 `json:"external"`
}

// HealthStatusA is the /health body for restexec.
type HealthStatusA struct {
	Status          string      `json:"status"`
	UptimeSeconds   int64       `json:"uptime"`
	ActiveProcesses int64       `json:"activeProcesses"`
	MemoryUsage     MemoryUsage `json:"memoryUsage"`
	Version         string      `json:"version"`
}

// HealthStatusB is the /health body for the MCP gateway.
type HealthStatusB struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime"`
	Servers       map[string]string `json:"servers"`
}

// MCPServerDescriptor is one entry of the gateway's config `servers` list.
type MCPServerDescriptor struct {
	Name                    string            `yaml:"name" json:"name"`
	Command                 string            `yaml:"command" json:"command"`
	Args                    []string          `yaml:"args" json:"args"`
	Envs                    map[string]string `yaml:"envs" json:"envs"`
	TimeoutMillis           int               `yaml:"timeout" json:"timeout"`
	MaxRestarts             int               `yaml:"maxRestarts" json:"maxRestarts"`
	CircuitBreakerThreshold int               `yaml:"circuitBreakerThreshold" json:"circuitBreakerThreshold"`
}

// ToolDescriptor is cached at session start from the MCP tools/list response.
type ToolDescriptor struct {
	Server      string          `json:"server"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
	TimeoutMs   int             `json:"timeout,omitempty"`
}

// MCPCallRequest is the body of POST /mcp/call.
type MCPCallRequest struct {
	Server   string          `json:"server"`
	ToolName string          `json:"toolName"`
	Input    json.RawMessage `json:"input"`
}
