// Package main is the entry point for restexec, the sandboxed TypeScript
// execution front-end (HTTP Surface A).
//
// # Application architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables via Koanf v2 (internal/config)
//  2. Logging: zerolog, configured from the loaded LOG_LEVEL/LOG_FORMAT
//  3. Workspace store, active-process counter, subprocess supervisor
//  4. Executor and Linter, sharing the supervisor
//  5. Authenticator and sliding-window RateLimiter
//  6. HTTP router (chi) and supervisor tree (background sweeper + HTTP server)
//
// # Shutdown
//
// SIGINT/SIGTERM cancels the root context; the supervisor tree stops
// accepting new connections, lets in-flight requests finish within its
// shutdown timeout, then exits. Exit code 0 on a clean stop, 1 on a
// configuration or startup failure.
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
	"github.com/sandboxcore/core/internal/executor"
	"github.com/sandboxcore/core/internal/logging"
	"github.com/sandboxcore/core/internal/process"
	"github.com/sandboxcore/core/internal/restapi"
	"github.com/sandboxcore/core/internal/svctree"
	"github.com/sandboxcore/core/internal/svctree/services"
	"github.com/sandboxcore/core/internal/validation"
	"github.com/sandboxcore/core/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: logFormat(cfg.Logging.Format)})
	logging.Info().Msg("starting restexec")

	store, err := workspace.New(cfg.Exec.WorkspaceDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize workspace store")
		os.Exit(1)
	}

	counter := process.NewActiveProcessCounter()
	supervisor := process.New(counter)

	execConfig := executor.Config{
		InterpreterPath: cfg.Exec.InterpreterBin,
		ToolsDir:        cfg.Exec.ToolsDir,
		DefaultTimeout:  cfg.Exec.DefaultTimeout(),
		Permissions: executor.Permissions{
			ReadAllow: []string{cfg.Exec.WorkspaceDir, cfg.Exec.ToolsDir},
		},
	}
	exec := executor.New(execConfig, supervisor, store)
	linter := executor.NewLinter(execConfig, supervisor, store)

	proxyCidrs, err := auth.ParseTrustedProxyCidrs(cfg.Security.TrustedProxyIPs)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid AUTH_TRUSTED_PROXY_IPS")
		os.Exit(1)
	}
	proxyConfig := auth.TrustedProxyConfig{Trust: len(proxyCidrs) > 0, Cidrs: proxyCidrs}

	authenticator := auth.New(auth.Config{Enabled: cfg.Security.AuthEnabled, APIKey: cfg.Security.APIKey}, logging.NewSecurityLogger())
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts: cfg.Security.RateLimit.MaxAttempts,
		WindowMs:    cfg.Security.RateLimit.WindowMs,
		MaxEntries:  cfg.Security.RateLimit.MaxEntries,
	})

	validator := validation.NewRequestValidator(cfg.Exec.MaxTimeoutMs)
	handler := restapi.NewHandler(validator, store, exec, linter, counter)
	router := restapi.NewRouter(handler, authenticator, rateLimiter, proxyConfig, restapi.DefaultChiMiddlewareConfig())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := svctree.New("restexec", logging.NewSlogLogger(), svctree.DefaultTreeConfig())
	tree.AddBackgroundService(rateLimiterSweeper{rateLimiter})
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("restexec listening")
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

	logging.Info().Msg("restexec stopped gracefully")
}

// logFormat maps spec's json|text LOG_FORMAT values onto the logger's
// json|console format names.
func logFormat(f string) string {
	if f == "text" {
		return "console"
	}
	return f
}

// rateLimiterSweeper runs the rate limiter's periodic eviction sweep as a
// background supervisor-tree service, so expired blocks and idle records
// are reclaimed without growing the store past MaxEntries between writes.
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
