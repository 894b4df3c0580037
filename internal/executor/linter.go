package executor

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/models"
	"github.com/sandboxcore/core/internal/process"
)

// Linter shares the Executor's spawn framework but invokes the
// interpreter's lint subcommand with a JSON-output flag.
type Linter struct {
	config     Config
	supervisor *process.Supervisor
	store      interface{ Path(codeID string) string }
}

// NewLinter creates a Linter sharing the Executor's configuration and store.
func NewLinter(config Config, supervisor *process.Supervisor, store interface{ Path(codeID string) string }) *Linter {
	return &Linter{config: config, supervisor: supervisor, store: store}
}

// Lint runs the saved artifact's source through the interpreter's lint
// subcommand. Exit codes 0 (clean) and 1 (findings) are both success.
func (l *Linter) Lint(ctx context.Context, req models.LintRequest) (*models.LintResult, *errs.Error) {
	path := l.store.Path(req.CodeID)
	if _, err := os.Stat(path); err != nil {
		return nil, errs.New(errs.KindFileNotFound, "artifact not found for codeId")
	}

	timeout := time.Duration(req.Timeout) * time.Millisecond
	if req.Timeout == 0 {
		timeout = l.config.DefaultTimeout
	}

	result, err := l.supervisor.Run(ctx, process.Run{
		ID:             req.CodeID,
		Command:        l.config.InterpreterPath,
		Args:           []string{"lint", "--json", path},
		Timeout:        timeout,
		StreamCapBytes: l.config.StreamCapBytes,
		KillGrace:      l.config.KillGrace,
	})
	if err != nil {
		return nil, errs.New(errs.KindInternal, "failed to spawn interpreter")
	}

	if result.Outcome == process.OutcomeTimeout {
		return nil, errs.New(errs.KindTimeout, "lint timed out")
	}
	if result.Outcome == process.OutcomeBufferOverflow {
		return nil, errs.New(errs.KindExecution, "lint output exceeded the stream cap")
	}

	if result.ExitCode != 0 && result.ExitCode != 1 {
		return nil, errs.New(errs.KindExecution, "lint fault").WithDetails(map[string]any{
			"exitCode": result.ExitCode,
			"stderr":   strings.TrimSpace(string(result.Stderr)),
		})
	}

	trimmed := strings.TrimSpace(string(result.Stdout))
	if trimmed == "" {
		return models.EmptyLintResult(), nil
	}

	var lr models.LintResult
	if err := json.Unmarshal([]byte(trimmed), &lr); err != nil {
		return nil, errs.New(errs.KindExecution, "failed to parse lint output")
	}
	return &lr, nil
}
