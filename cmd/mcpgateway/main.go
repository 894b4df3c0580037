// Package main is the entry point for the MCP gateway, the JSON-RPC
// multiplexing front-end (HTTP Surface B).
//
// # Application architecture
//
// The server initializes components in the following order:
//
//  1. Server config and logging: the same environment contract as restexec
//     (internal/config), then zerolog from its LOG_LEVEL/LOG_FORMAT
//  2. Fleet descriptor: CONFIG_PATH YAML, env-interpolated (internal/mcpconfig)
//  3. Tool registry (internal/toolregistry) shared by every session
//  4. SessionManager: one Session per configured server (internal/mcpsession)
//  5. Authenticator and sliding-window RateLimiter (shared with restexec)
//  6. HTTP router (chi) and supervisor tree: sessions layer + HTTP server
//
// # Shutdown
//
// SIGINT/SIGTERM cancels the root context; the supervisor tree stops
// accepting new connections, terminates every MCP child, then exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sandboxcore/core/internal/auth"
	"github.com/sandboxcore/core/internal/config"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/mcpapi"
	"github.com/sandboxcore/core/internal/mcpconfig"
	"github.com/sandboxcore/core/internal/mcpsession"
	"github.com/sandboxcore/core/internal/svctree"
	"github.com/sandboxcore/core/internal/svctree/services"
	"github.com/sandboxcore/core/internal/toolregistry"
)

func main() {
	serverCfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load server configuration")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: serverCfg.Logging.Level, Format: logFormat(serverCfg.Logging.Format)})
	logging.Info().Msg("starting mcp gateway")

	fleetCfg, err := mcpconfig.Load(mcpconfig.ResolvePath())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load mcp fleet configuration")
		os.Exit(1)
	}

	registry := toolregistry.New()
	manager := mcpsession.NewManager(fleetCfg.Servers, registry, fleetCfg.HealthCheckIntervalDuration(), fleetCfg.RestartPolicy)

	proxyCidrs, err := auth.ParseTrustedProxyCidrs(serverCfg.Security.TrustedProxyIPs)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid AUTH_TRUSTED_PROXY_IPS")
		os.Exit(1)
	}
	proxyConfig := auth.TrustedProxyConfig{Trust: len(proxyCidrs) > 0, Cidrs: proxyCidrs}

	authenticator := auth.New(auth.Config{Enabled: serverCfg.Security.AuthEnabled, APIKey: serverCfg.Security.APIKey}, logging.NewSecurityLogger())
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts: serverCfg.Security.RateLimit.MaxAttempts,
		WindowMs:    serverCfg.Security.RateLimit.WindowMs,
		MaxEntries:  serverCfg.Security.RateLimit.MaxEntries,
	})

	validator := mcpapi.NewRequestValidator()
	handler := mcpapi.NewHandler(validator, manager)
	router := mcpapi.NewRouter(handler, authenticator, rateLimiter, proxyConfig, mcpapi.DefaultChiMiddlewareConfig())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", serverCfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := svctree.New("mcp-gateway", logging.NewSlogLogger(), svctree.DefaultTreeConfig())
	for _, session := range manager.Sessions() {
		tree.AddSessionService(session)
	}
	tree.AddBackgroundService(rateLimiterSweeper{rateLimiter})
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Int("servers", len(fleetCfg.Servers)).Msg("mcp gateway listening")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("mcp gateway stopped gracefully")
}

func logFormat(f string) string {
	if f == "text" {
		return "console"
	}
	return f
}

type rateLimiterSweeper struct {
	limiter *auth.RateLimiter
}

func (s rateLimiterSweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.limiter.Sweep()
		}
	}
}

func (s rateLimiterSweeper) String() string { return "rate-limiter-sweeper" }
