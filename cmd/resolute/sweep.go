// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/resolute/resolute/internal/auth"
	authpg "github.com/resolute/resolute/internal/auth/postgres"
	"github.com/resolute/resolute/internal/store"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions once",
		Long:  `Delete every web session whose expiry has passed, then exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			setupLogging(cfg)

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, cfg.Database.ConnectBackoff)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()

			n, err := sweepOnce(ctx, pool, cfg.Session.TTL)
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d expired sessions\n", n)
			return nil
		},
	}
}

// sweepOnce deletes expired sessions through the session manager.
func sweepOnce(ctx context.Context, db store.Pool, ttl time.Duration) (int64, error) {
	users := authpg.NewUserRepository(db)
	manager, err := auth.NewSessionManager(authpg.NewSessionRepository(db), users, ttl)
	if err != nil {
		return 0, err
	}
	return manager.Sweep(ctx)
}

// runSweeper calls sweep every interval until ctx is done. Failures are
// logged and retried on the next tick.
func runSweeper(ctx context.Context, interval time.Duration, sweep func(context.Context) (int64, error), record func(int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			record(n)
			if n > 0 {
				slog.InfoContext(ctx, "expired sessions deleted", "count", n)
			}
		}
	}
}
