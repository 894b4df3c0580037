/*
Package services provides suture.Service wrappers for sandboxcore components.

This package adapts existing application components to the suture v4 supervision
model, translating a component's own lifecycle (here, ListenAndServe) into
suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

HTTPServerService is the only wrapper in this package. The MCP sessions
(internal/mcpsession) and the rate-limit sweepers in cmd/ implement
suture.Service themselves.

# Usage Example

Creating and registering the HTTP server service:

	import (
	    "net/http"
	    "time"

	    "github.com/sandboxcore/core/internal/svctree"
	    "github.com/sandboxcore/core/internal/svctree/services"
	)

	func setupTree(ctx context.Context, server *http.Server, logger *slog.Logger) <-chan error {
	    tree := svctree.New("restexec", logger, svctree.DefaultTreeConfig())

	    // HTTP server with 10s shutdown timeout
	    tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	    // Start supervision
	    return tree.ServeBackground(ctx)
	}

# Lifecycle Patterns

Three common lifecycle patterns map onto Serve as shown below;
HTTPServerService implements the ListenAndServe one, returning ctx.Err()
after a clean Shutdown:

Start/Stop Pattern:

	type StartStopper interface {
	    Start(ctx context.Context) error
	    Stop() error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.component.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.component.Stop()
	}

Run Pattern:

	type Runner interface {
	    Run() error  // Blocks until complete
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    errCh := make(chan error, 1)
	    go func() { errCh <- s.component.Run() }()
	    select {
	    case err := <-errCh: return err
	    case <-ctx.Done(): s.component.Shutdown(); return nil
	    }
	}

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

Example error handling:

	func (s *SyncService) Serve(ctx context.Context) error {
	    if err := s.manager.Start(ctx); err != nil {
	        // Transient error - supervisor should restart
	        return fmt.Errorf("sync start failed: %w", err)
	    }

	    <-ctx.Done()

	    if err := s.manager.Stop(); err != nil {
	        // Log but don't propagate - shutdown is complete
	        log.Printf("sync stop warning: %v", err)
	    }

	    return nil  // Clean shutdown, no restart
	}

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Testing

Services can be tested against a real *http.Server on an ephemeral port:

	func TestHTTPService(t *testing.T) {
	    server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	    svc := services.NewHTTPServerService(server, time.Second)

	    ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	    defer cancel()

	    if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
	        t.Errorf("Serve = %v, want context.DeadlineExceeded", err)
	    }
	}

# Thread Safety

All service wrappers are safe for concurrent use:
  - State is protected by mutexes where needed
  - Context cancellation is handled atomically
  - Multiple Serve calls are not supported (undefined behavior)

# See Also

  - internal/svctree: Tree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/mcpsession: Session, which implements suture.Service directly
*/
package services
