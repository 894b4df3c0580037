// Package executor builds child-process invocations on top of
// internal/process and parses their output into the shapes spec.md
// prescribes. Grounded on divitsinghall-Vortex's ProcessRunner (temp-file
// staging, JSON output parsing) and khanglvm-tool-hub-mcp's spawn
// bookkeeping, adapted to restexec's permission-flag argv shape.
package executor

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/models"
	"github.com/sandboxcore/core/internal/process"
	"github.com/sandboxcore/core/internal/workspace"
)

// Permissions describes the interpreter's sandbox flags for one run.
type Permissions struct {
	ReadAllow  []string // default: workspace + tools directories
	WriteAllow []string // default: empty
	NetAllow   []string
	AllowRun   bool // subprocess bit; default forbidden
	ImportMap  string
}

// Config holds the Executor's static configuration.
type Config struct {
	InterpreterPath string
	ToolsDir        string
	DefaultTimeout  time.Duration
	KillGrace       time.Duration
	StreamCapBytes  int
	Permissions     Permissions
}

// Executor runs and lints saved artifacts via the ProcessSupervisor.
type Executor struct {
	config     Config
	supervisor *process.Supervisor
	store      *workspace.Store
}

// New creates an Executor.
func New(config Config, supervisor *process.Supervisor, store *workspace.Store) *Executor {
	return &Executor{config: config, supervisor: supervisor, store: store}
}

// Execute runs the saved artifact identified by codeId.
func (e *Executor) Execute(ctx context.Context, req models.ExecuteRequest) (*models.ExecutionOutcome, *errs.Error) {
	path := e.store.Path(req.CodeID)
	if _, err := os.Stat(path); err != nil {
		return nil, errs.New(errs.KindFileNotFound, "artifact not found for codeId")
	}

	timeout := time.Duration(req.Timeout) * time.Millisecond
	if req.Timeout == 0 {
		timeout = e.config.DefaultTimeout
	}

	env, envKeys := e.composeEnv(req.Env)
	args := e.buildArgs(path, envKeys)

	logging.Ctx(ctx).Debug().Dur("timeout", timeout).Int("env_key_count", len(envKeys)).Msg("spawning interpreter")

	result, err := e.supervisor.Run(ctx, process.Run{
		ID:             req.CodeID,
		Command:        e.config.InterpreterPath,
		Args:           args,
		Env:            env,
		Timeout:        timeout,
		StreamCapBytes: e.config.StreamCapBytes,
		KillGrace:      e.config.KillGrace,
	})
	if err != nil {
		return nil, errs.New(errs.KindInternal, "failed to spawn interpreter")
	}

	switch result.Outcome {
	case process.OutcomeTimeout:
		return nil, errs.New(errs.KindTimeout, "execution timed out")
	case process.OutcomeBufferOverflow:
		return nil, errs.New(errs.KindExecution, "output exceeded the stream cap").WithDetails(nil)
	}

	if result.ExitCode != 0 || result.Signal != "" {
		return nil, errs.New(errs.KindExecution, "execution failed").WithDetails(map[string]any{
			"exitCode": result.ExitCode,
			"signal":   result.Signal,
			"stderr":   strings.TrimSpace(string(result.Stderr)),
		})
	}

	outcome := parseExecutionOutput(result)
	return outcome, nil
}

// parseExecutionOutput implements the output-parsing rule: trim stdout; if
// empty, result is {success:true, result:null}; else attempt JSON parse; on
// parse failure, wrap the raw trimmed string rather than treating it as an
// error (preserving human-readable LLM-style output).
func parseExecutionOutput(result *process.Result) *models.ExecutionOutcome {
	trimmed := strings.TrimSpace(string(result.Stdout))

	outcome := &models.ExecutionOutcome{
		Success:       true,
		ExitCode:      result.ExitCode,
		Signal:        result.Signal,
		ElapsedMillis: result.Elapsed.Milliseconds(),
		StdoutBytes:   len(result.Stdout),
		StderrBytes:   len(result.Stderr),
	}

	if trimmed == "" {
		outcome.Result = nil
		return outcome
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		outcome.Result = trimmed
		return outcome
	}
	outcome.Result = parsed
	return outcome
}

// composeEnv implements the env-composition rule: start empty, merge the
// user env minus the forbidden keys and any DENO_-prefixed key (the
// validator also rejects these at request time), then overwrite with the
// parent process's system values. System
// values always win — a security invariant, not a convenience. It also
// returns the sorted set of keys actually present, so buildArgs can scope
// --allow-env to exactly this union rather than granting blanket env-read
// access to the subprocess.
func (e *Executor) composeEnv(userEnv map[string]string) ([]string, []string) {
	merged := make(map[string]string, len(userEnv)+2)
	for k, v := range userEnv {
		switch k {
		case "PATH", "DENO_DIR", "HOME", "USER", "PWD", "SHELL", "HOSTNAME", "TMPDIR", "TEMP", "TMP":
			continue
		}
		if strings.HasPrefix(k, "DENO_") {
			continue
		}
		merged[k] = v
	}

	// System keys always overwrite, regardless of user input.
	merged["PATH"] = os.Getenv("PATH")
	if cacheDir, ok := os.LookupEnv("DENO_DIR"); ok {
		merged["DENO_DIR"] = cacheDir
	}

	out := make([]string, 0, len(merged))
	keys := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys
}

func (e *Executor) buildArgs(targetFile string, envKeys []string) []string {
	args := []string{"run"}
	for _, p := range e.config.Permissions.ReadAllow {
		args = append(args, "--allow-read="+p)
	}
	for _, p := range e.config.Permissions.WriteAllow {
		args = append(args, "--allow-write="+p)
	}
	for _, p := range e.config.Permissions.NetAllow {
		args = append(args, "--allow-net="+p)
	}
	if e.config.Permissions.AllowRun {
		args = append(args, "--allow-run")
	}
	if len(envKeys) > 0 {
		args = append(args, "--allow-env="+strings.Join(envKeys, ","))
	}
	if e.config.Permissions.ImportMap != "" {
		args = append(args, "--import-map="+e.config.Permissions.ImportMap)
	}
	args = append(args, targetFile)

	logging.Debug().Strs("args", args).Msg("built executor argv")
	return args
}
