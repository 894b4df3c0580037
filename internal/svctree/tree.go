package svctree

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production-ready defaults.
// These values match suture's built-in defaults per pkg.go.dev documentation.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree manages the hierarchical supervisor structure shared by both
// sandboxcore binaries.
//
// The tree is organized into three layers:
//   - sessions: long-lived child processes (MCP gateway only; empty for restexec)
//   - background: sweepers, metrics pollers, anything that isn't request-driven
//   - api: the HTTP server
//
// This structure provides failure isolation: a crash in a session or a
// background sweeper does not take down the HTTP layer's ability to keep
// answering requests that don't depend on it.
type Tree struct {
	root       *suture.Supervisor
	sessions   *suture.Supervisor
	background *suture.Supervisor
	api        *suture.Supervisor
	logger     *slog.Logger
	config     TreeConfig
}

// New creates a new supervisor tree with the given configuration.
func New(name string, logger *slog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// MustHook has a pointer receiver, so we need to take the address.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Child supervisors inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New(name, rootSpec)
	sessions := suture.New(name+"-sessions", childSpec)
	background := suture.New(name+"-background", childSpec)
	api := suture.New(name+"-api", childSpec)

	root.Add(sessions)
	root.Add(background)
	root.Add(api)

	return &Tree{
		root:       root,
		sessions:   sessions,
		background: background,
		api:        api,
		logger:     logger,
		config:     config,
	}
}

// Root returns the root supervisor for direct access if needed.
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}

// AddSessionService adds a service to the sessions supervisor.
// Use this for MCP session managers (one per configured server).
func (t *Tree) AddSessionService(svc suture.Service) suture.ServiceToken {
	return t.sessions.Add(svc)
}

// AddBackgroundService adds a service to the background supervisor.
// Use this for the rate-limit sweeper and similar periodic tasks.
func (t *Tree) AddBackgroundService(svc suture.Service) suture.ServiceToken {
	return t.background.Add(svc)
}

// AddAPIService adds a service to the API supervisor.
// Use this for the HTTP server.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// RemoveSessionService removes a service from the sessions supervisor, for
// an MCP server that is permanently retired. Nothing in this module calls
// it.
func (t *Tree) RemoveSessionService(token suture.ServiceToken) error {
	return t.sessions.Remove(token)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// Returns a channel that receives the error (or nil) when the supervisor stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns information about services that failed to
// stop within the configured shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// RemoveAndWait removes a service and waits for it to fully stop.
func (t *Tree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	return t.root.RemoveAndWait(token, timeout)
}
