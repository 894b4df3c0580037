package mcpsession

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/models"
	"github.com/sandboxcore/core/internal/toolregistry"
)

// State is a session's position in its lifecycle state machine.
type State int

const (
	StateStarting State = iota
	StateAvailable
	StateUnavailable
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

const (
	initializeTimeout  = 10 * time.Second
	pingTimeout        = 5 * time.Second
	defaultToolTimeout = 30 * time.Second
	restartBackoffBase = 1 * time.Second
	maxRestartAttempts = 3
)

// Session supervises one configured MCP server's child process: spawn,
// the stdio JSON-RPC handshake, periodic ping-based health checks, and
// restart on crash. It implements suture.Service.
type Session struct {
	descriptor models.MCPServerDescriptor
	registry   *toolregistry.Registry
	onState    func(server string, previous, current State)

	mu           sync.RWMutex
	state        State
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	nextID       int64
	pending      map[int64]chan *rpcResponse
	restarts     int
	breaker      *gobreaker.CircuitBreaker[[]byte]
	healthPeriod time.Duration
	restartPol   string
}

// New creates a Session for one MCP server descriptor. healthCheckInterval
// and restartPolicy come from the gateway's global config (spec.md §4.10);
// per-server timeout comes from the descriptor itself.
func New(descriptor models.MCPServerDescriptor, registry *toolregistry.Registry, healthCheckInterval time.Duration, restartPolicy string, onState func(server string, previous, current State)) *Session {
	s := &Session{
		descriptor:   descriptor,
		registry:     registry,
		onState:      onState,
		state:        StateStarting,
		pending:      make(map[int64]chan *rpcResponse),
		healthPeriod: healthCheckInterval,
		restartPol:   restartPolicy,
	}
	threshold := uint32(3)
	if descriptor.CircuitBreakerThreshold > 0 {
		threshold = uint32(descriptor.CircuitBreakerThreshold)
	}
	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "mcp-session-" + descriptor.Name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	return s
}

// Name returns the configured server name (String() for suture logging).
func (s *Session) Name() string { return s.descriptor.Name }
func (s *Session) String() string { return "mcp-session-" + s.descriptor.Name }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next && s.onState != nil {
		s.onState(s.descriptor.Name, prev, next)
	}
}

// Serve implements suture.Service: spawns the child, runs the health-check
// loop, and on crash applies the restart policy, until ctx is canceled.
func (s *Session) Serve(ctx context.Context) error {
	for {
		if err := s.spawnAndRun(ctx); err != nil {
			logging.Warn().Err(err).Str("server", s.descriptor.Name).Msg("mcp session crashed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.restartPol != "on-failure" {
			s.setState(StateCrashed)
			return nil
		}

		s.mu.Lock()
		s.restarts++
		attempt := s.restarts
		s.mu.Unlock()

		maxAttempts := maxRestartAttempts
		if s.descriptor.MaxRestarts > 0 {
			maxAttempts = s.descriptor.MaxRestarts
		}
		if attempt > maxAttempts {
			s.setState(StateCrashed)
			logging.Error().Str("server", s.descriptor.Name).Int("attempts", attempt-1).Msg("mcp session exhausted restart attempts")
			return nil
		}

		backoff := restartBackoffBase * time.Duration(1<<uint(attempt-1))
		logging.Info().Str("server", s.descriptor.Name).Int("attempt", attempt).Dur("backoff", backoff).Msg("restarting mcp session")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// spawnAndRun starts the child process, performs the handshake, and
// blocks running the ping loop and reader until the child exits or ctx
// is canceled. Returns the reason the session stopped.
func (s *Session) spawnAndRun(ctx context.Context) error {
	s.setState(StateStarting)

	cmd := exec.Command(s.descriptor.Command, s.descriptor.Args...)
	cmd.Env = os.Environ()
	for k, v := range s.descriptor.Envs {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.pending = make(map[int64]chan *rpcResponse)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { io.Copy(io.Discard, stderr) }()

	// The handshake is abandoned as soon as stdout closes, so a child that
	// exits before answering is treated as crashed without waiting out the
	// initialize timeout.
	hsCtx, hsCancel := context.WithCancel(runCtx)
	defer hsCancel()

	readerDone := make(chan error, 1)
	go func() {
		err := s.readLoop(bufio.NewReader(stdout))
		hsCancel()
		readerDone <- err
	}()

	if err := s.handshake(hsCtx); err != nil {
		_ = cmd.Process.Kill()
		<-readerDone
		_ = cmd.Wait()
		return fmt.Errorf("handshake: %w", err)
	}

	s.setState(StateAvailable)
	s.mu.Lock()
	s.restarts = 0
	s.mu.Unlock()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	ticker := time.NewTicker(s.healthPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			<-waitDone
			return ctx.Err()

		case readErr := <-readerDone:
			s.setState(StateCrashed)
			<-waitDone
			if readErr != nil {
				return fmt.Errorf("stdout closed: %w", readErr)
			}
			return fmt.Errorf("stdout closed")

		case waitErr := <-waitDone:
			s.setState(StateCrashed)
			if waitErr != nil {
				return fmt.Errorf("child exited: %w", waitErr)
			}
			return fmt.Errorf("child exited")

		case <-ticker.C:
			if err := s.ping(runCtx); err != nil {
				s.setState(StateUnavailable)
				logging.Warn().Err(err).Str("server", s.descriptor.Name).Msg("mcp ping failed")
			} else if s.State() == StateUnavailable {
				s.setState(StateAvailable)
			}
		}
	}
}

func (s *Session) handshake(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	params, _ := gojson.Marshal(map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "sandboxcore-mcp-gateway", "version": "1"},
	})
	if _, err := s.request(hctx, "initialize", params); err != nil {
		return err
	}
	if err := s.notify("notifications/initialized", nil); err != nil {
		return err
	}

	lctx, cancel2 := context.WithTimeout(ctx, initializeTimeout)
	defer cancel2()
	result, err := s.request(lctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	var list toolsListResult
	if err := gojson.Unmarshal(result, &list); err != nil {
		return fmt.Errorf("parsing tools/list: %w", err)
	}
	tools := make([]models.ToolDescriptor, 0, len(list.Tools))
	for _, t := range list.Tools {
		tools = append(tools, models.ToolDescriptor{
			Server:      s.descriptor.Name,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			TimeoutMs:   s.descriptor.TimeoutMillis,
		})
	}
	s.registry.Publish(s.descriptor.Name, tools)
	return nil
}

// ping health-checks the child, wrapped in a circuit breaker: once enough
// consecutive pings fail, the breaker trips open and short-circuits
// further pings for its cooldown window instead of hammering a child that
// is probably wedged, letting the health loop fail fast until the
// breaker allows a trial ping through again.
func (s *Session) ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		_, err := s.request(pctx, "ping", nil)
		return nil, err
	})
	return err
}

// Call issues a tools/call and maps the result/error per spec.md §4.8.
func (s *Session) Call(ctx context.Context, toolName string, input json.RawMessage, timeout time.Duration) (*models.ExecutionOutcome, *errs.Error) {
	switch s.State() {
	case StateStarting:
		return nil, errs.New(errs.KindServerNotRunning, "mcp server is still starting")
	case StateUnavailable:
		return nil, errs.New(errs.KindServerNotRunning, "mcp server is unavailable")
	case StateCrashed:
		return nil, errs.New(errs.KindServerCrashed, "mcp server has crashed")
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params, _ := gojson.Marshal(map[string]any{"name": toolName, "arguments": input})
	start := time.Now()
	result, err := s.request(callCtx, "tools/call", params)
	elapsed := time.Since(start)

	if err != nil {
		if callCtx.Err() != nil {
			return nil, errs.New(errs.KindTimeout, "mcp call deadline exceeded")
		}
		if rpcErr, ok := err.(*rpcError); ok && rpcErr.isUnknownTool() {
			return nil, errs.New(errs.KindToolNotFound, "unknown tool "+toolName)
		}
		return nil, errs.New(errs.KindToolExecution, err.Error())
	}

	var call toolCallResult
	if jsonErr := gojson.Unmarshal(result, &call); jsonErr != nil {
		return nil, errs.New(errs.KindToolExecution, "failed to parse tool result")
	}
	if call.IsError {
		return nil, errs.New(errs.KindToolExecution, firstTextOrFallback(call.Content))
	}

	var payload any
	if len(call.Content) > 0 {
		payload = call.Content[0].Text
	}
	return &models.ExecutionOutcome{
		Success:       true,
		Result:        payload,
		ElapsedMillis: elapsed.Milliseconds(),
	}, nil
}

// request sends a JSON-RPC call and blocks for its response or ctx expiry.
func (s *Session) request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := atomic.AddInt64(&s.nextID, 1)
	waiter := make(chan *rpcResponse, 1)

	s.mu.Lock()
	s.pending[id] = waiter
	stdin := s.stdin
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	line, err := gojson.Marshal(req)
	if err != nil {
		return nil, err
	}
	line = append(line, '\n')

	if stdin == nil {
		return nil, fmt.Errorf("session has no active stdin")
	}
	if _, err := stdin.Write(line); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case resp := <-waiter:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// notify sends a JSON-RPC notification (no response expected).
func (s *Session) notify(method string, params json.RawMessage) error {
	s.mu.RLock()
	stdin := s.stdin
	s.mu.RUnlock()
	if stdin == nil {
		return fmt.Errorf("session has no active stdin")
	}
	req := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		req["params"] = params
	}
	line, err := gojson.Marshal(req)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = stdin.Write(line)
	return err
}

// readLoop dispatches one JSON-RPC response line at a time to the waiter
// registered for its ID; lines that do not parse are skipped. Returns nil
// when stdout reaches EOF, or the read error otherwise.
func (s *Session) readLoop(r *bufio.Reader) error {
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := strings.TrimSpace(string(line))
			if trimmed != "" {
				var resp rpcResponse
				if unmarshalErr := gojson.Unmarshal([]byte(trimmed), &resp); unmarshalErr == nil {
					s.mu.RLock()
					waiter, ok := s.pending[resp.ID]
					s.mu.RUnlock()
					if ok {
						r := resp
						waiter <- &r
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
