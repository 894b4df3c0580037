/*
Package svctree provides process supervision for both sandboxcore binaries
using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the process. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation, and
graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	Root ("restexec" or "mcp-gateway")
	├── SessionsSupervisor ("<name>-sessions")
	│   └── one SessionService per configured MCP server (gateway only)
	├── BackgroundSupervisor ("<name>-background")
	│   └── rate-limit sweeper
	└── APISupervisor ("<name>-api")
	    └── HTTPServerService

This hierarchy ensures that a crashing MCP session does not take down the
HTTP layer's ability to keep answering requests for the other sessions, and
that HTTP server restarts are isolated from session restarts.

# Usage

	logger := slog.Default()
	tree := svctree.New("mcp-gateway", logger, svctree.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	for _, sess := range sessions {
	    tree.AddSessionService(sess)
	}
	errCh := tree.ServeBackground(ctx)

# Service interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil means the service stopped cleanly and will not be restarted
by suture itself (restexec has none of these — the gateway's MCP sessions
manage their own restart policy internally per spec and return nil only on
permanent retirement). Returning an error means the service crashed and
suture will restart it after the configured backoff; context cancellation
means shutdown was requested and the service should return promptly.
*/
package svctree
