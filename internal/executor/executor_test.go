package executor

import (
	"os"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sandboxcore/core/internal/process"
)

// TestComposeEnvSystemKeyWinsOverUserOverride is the system-env-key
// precedence invariant: a user-supplied PATH must never survive into the
// composed environment.
func TestComposeEnvSystemKeyWinsOverUserOverride(t *testing.T) {
	realPath := os.Getenv("PATH")
	e := &Executor{}

	env, _ := e.composeEnv(map[string]string{
		"PATH":     "/evil/bin",
		"CUSTOM":   "value",
		"DENO_DIR": "/evil/cache",
	})

	got := envMap(env)
	if got["PATH"] != realPath {
		t.Fatalf("PATH = %q, want system value %q", got["PATH"], realPath)
	}
	if got["CUSTOM"] != "value" {
		t.Fatalf("CUSTOM = %q, want preserved user value", got["CUSTOM"])
	}
}

func TestComposeEnvWithNoUserEnv(t *testing.T) {
	e := &Executor{}
	env, _ := e.composeEnv(nil)
	got := envMap(env)
	if got["PATH"] != os.Getenv("PATH") {
		t.Fatalf("PATH = %q, want system PATH even with nil user env", got["PATH"])
	}
}

// TestComposeEnvReturnsSortedKeySetForScopedAllowEnv checks the key list
// composeEnv hands to buildArgs: it must be exactly the system keys plus
// the caller-supplied keys, sorted, with no duplicates — the set that
// becomes --allow-env's scoped argument.
func TestComposeEnvReturnsSortedKeySetForScopedAllowEnv(t *testing.T) {
	e := &Executor{}
	_, keys := e.composeEnv(map[string]string{"CUSTOM": "value", "API_TOKEN": "x"})

	want := []string{"API_TOKEN", "CUSTOM", "PATH"}
	if _, ok := os.LookupEnv("DENO_DIR"); ok {
		want = []string{"API_TOKEN", "CUSTOM", "DENO_DIR", "PATH"}
		sort.Strings(want)
	}
	sort.Strings(want)
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func envMap(env []string) map[string]string {
	out := make(map[string]string, len(env))
	for _, kv := range env {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func TestParseExecutionOutputEmptyStdout(t *testing.T) {
	outcome := parseExecutionOutput(&process.Result{Stdout: []byte("   \n")})
	if outcome.Result != nil {
		t.Fatalf("Result = %v, want nil for empty stdout", outcome.Result)
	}
	if !outcome.Success {
		t.Fatal("Success = false, want true")
	}
}

func TestParseExecutionOutputValidJSON(t *testing.T) {
	outcome := parseExecutionOutput(&process.Result{Stdout: []byte(`{"ok":true,"n":3}`)})
	m, ok := outcome.Result.(map[string]any)
	if !ok {
		t.Fatalf("Result type = %T, want map[string]any", outcome.Result)
	}
	if m["ok"] != true {
		t.Fatalf("Result[ok] = %v, want true", m["ok"])
	}
}

// TestParseExecutionOutputNonJSONWrapsRatherThanErrors is the non-JSON-
// stdout-is-not-an-error resolution: plain-text stdout becomes the raw
// trimmed string, not a failure.
func TestParseExecutionOutputNonJSONWrapsRatherThanErrors(t *testing.T) {
	outcome := parseExecutionOutput(&process.Result{Stdout: []byte("  hello world  \n")})
	s, ok := outcome.Result.(string)
	if !ok {
		t.Fatalf("Result type = %T, want string", outcome.Result)
	}
	if s != "hello world" {
		t.Fatalf("Result = %q, want trimmed %q", s, "hello world")
	}
	if !outcome.Success {
		t.Fatal("Success = false, want true for non-JSON stdout")
	}
}

func TestParseExecutionOutputRecordsByteCountsNotContent(t *testing.T) {
	outcome := parseExecutionOutput(&process.Result{
		Stdout: []byte("abcde"),
		Stderr: []byte("xyz"),
	})
	if outcome.StdoutBytes != 5 {
		t.Fatalf("StdoutBytes = %d, want 5", outcome.StdoutBytes)
	}
	if outcome.StderrBytes != 3 {
		t.Fatalf("StderrBytes = %d, want 3", outcome.StderrBytes)
	}
}

func TestBuildArgsScopesAllowEnvToExactKeySet(t *testing.T) {
	e := &Executor{config: Config{Permissions: Permissions{ReadAllow: []string{"/ws"}}}}

	noKeys := e.buildArgs("/ws/file.ts", nil)
	if contains(noKeys, "--allow-env") {
		t.Fatalf("args with no env keys = %v, should not contain --allow-env", noKeys)
	}

	withKeys := e.buildArgs("/ws/file.ts", []string{"API_TOKEN", "PATH"})
	if !contains(withKeys, "--allow-env=API_TOKEN,PATH") {
		t.Fatalf("args with env keys = %v, want a flag scoped to exactly API_TOKEN,PATH", withKeys)
	}
	if contains(withKeys, "--allow-env") {
		t.Fatalf("args = %v, want the scoped --allow-env=... form, not the bare unscoped flag", withKeys)
	}
}

// TestExecuteScopesAllowEnvToComposedKeySet checks the scoping invariant on
// the composeEnv -> buildArgs chain that Execute runs: the argv must never
// carry a bare --allow-env, only one scoped to the system keys plus
// whatever the caller supplied.
func TestExecuteScopesAllowEnvToComposedKeySet(t *testing.T) {
	e := &Executor{config: Config{Permissions: Permissions{ReadAllow: []string{"/ws"}}}}

	_, keys := e.composeEnv(map[string]string{"API_TOKEN": "x"})
	args := e.buildArgs("/ws/file.ts", keys)

	want := "--allow-env=" + strings.Join(keys, ",")
	if !contains(args, want) {
		t.Fatalf("args = %v, want %q", args, want)
	}
	for _, a := range args {
		if a == "--allow-env" {
			t.Fatalf("args = %v, should never contain the unscoped --allow-env flag", args)
		}
	}
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
