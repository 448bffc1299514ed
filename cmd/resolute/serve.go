// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/resolute/resolute/internal/auth"
	authpg "github.com/resolute/resolute/internal/auth/postgres"
	"github.com/resolute/resolute/internal/config"
	"github.com/resolute/resolute/internal/observability"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
	respg "github.com/resolute/resolute/internal/resolution/postgres"
	"github.com/resolute/resolute/internal/store"
	"github.com/resolute/resolute/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web application, the metrics and health server and the
background sweeper that removes expired sessions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

const cleanupTimeout = 5 * time.Second

// app is the wired web application.
type app struct {
	handler  http.Handler
	sessions *auth.SessionManager
	throttle *auth.LoginThrottle
}

// buildApp wires repositories, services and the router over db.
func buildApp(db store.Pool, cfg *config.Config, metrics *observability.Metrics) (*app, error) {
	users := authpg.NewUserRepository(db)
	hasher := auth.NewArgon2idHasher()

	manager, err := auth.NewSessionManager(authpg.NewSessionRepository(db), users, cfg.Session.TTL)
	if err != nil {
		return nil, err
	}
	password, err := auth.NewPasswordStrategy(users, hasher)
	if err != nil {
		return nil, err
	}
	registry, err := auth.NewRegistry(password)
	if err != nil {
		return nil, err
	}
	gate, err := auth.NewGatekeeper(manager, registry,
		auth.WithReturnToExclusions(cfg.Auth.ReturnToExclude),
		auth.WithRecorder(metrics))
	if err != nil {
		return nil, err
	}
	accounts, err := auth.NewService(users, hasher)
	if err != nil {
		return nil, err
	}

	policy, err := progress.ParsePolicy(cfg.Progress.Verdict)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "progress.verdict").
			With("value", cfg.Progress.Verdict).
			Errorf("progress.verdict: %v", err)
	}
	engine := progress.NewEngine(policy)
	resolutions, err := resolution.NewService(resolution.ServiceConfig{
		Transactor:  respg.NewTransactor(db),
		Profiles:    respg.NewProfileRepository(db),
		Resolutions: respg.NewResolutionRepository(db),
		Completions: respg.NewCompletionRepository(db),
		Engine:      engine,
		Recorder:    metrics,
	})
	if err != nil {
		return nil, err
	}

	throttle := auth.NewLoginThrottle(auth.ThrottleConfig{
		Burst:       cfg.Auth.LoginBurst,
		ClientBurst: cfg.Auth.LoginClientBurst,
		Refill:      cfg.Auth.LoginRefill,
	})
	handler, err := web.NewRouter(web.Config{
		Gatekeeper:   gate,
		Accounts:     accounts,
		Resolutions:  resolutions,
		Policy:       policy,
		Observer:     metrics,
		Throttle:     throttle,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
		SessionTTL:   cfg.Session.TTL,
	})
	if err != nil {
		throttle.Close()
		return nil, err
	}
	return &app{handler: handler, sessions: manager, throttle: throttle}, nil
}

// runServeWithDeps runs the server until a signal, a server error or ctx
// cancellation. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	setupLogging(cfg)
	slog.Info("starting resolute", "version", version, "addr", cfg.HTTP.Addr)

	db, err := deps.DatabaseFactory(ctx, cfg.Database)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	slog.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, db.Ping)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	application, err := buildApp(db, cfg, metrics)
	if err != nil {
		stopObservability(obsServer)
		return err
	}
	defer application.throttle.Close()

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           application.handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
	webErrChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			webErrChan <- serveErr
		}
		close(webErrChan)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, cfg.Session.SweepInterval, application.sessions.Sweep, metrics.RecordSweep)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Resolute started")
	slog.Info("web server listening", "addr", listener.Addr().String())
	if deps.Ready != nil {
		deps.Ready <- listener.Addr().String()
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case serveErr = <-webErrChan:
		slog.Error("web server error, shutting down", "error", serveErr)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	wg.Wait()
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("WEB_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(serveErr)
	}
	return nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
