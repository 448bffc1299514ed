// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package storetest starts a throwaway PostgreSQL for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/resolute/resolute/internal/store"
)

// Database is a migrated PostgreSQL container.
type Database struct {
	URL       string
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies all migrations and opens a pool.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("resolute_test"),
		postgres.WithUsername("resolute"),
		postgres.WithPassword("resolute"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, oops.Code("TEST_DB_START_FAILED").Wrap(err)
	}
	db := &Database{container: container}

	db.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		db.Stop(ctx)
		return nil, oops.Code("TEST_DB_START_FAILED").Wrap(err)
	}

	migrator, err := store.NewMigrator(db.URL)
	if err != nil {
		db.Stop(ctx)
		return nil, err
	}
	defer migrator.Close() //nolint:errcheck // test setup
	if err := migrator.Up(); err != nil {
		db.Stop(ctx)
		return nil, err
	}

	db.Pool, err = store.Connect(ctx, db.URL, 5, 200*time.Millisecond)
	if err != nil {
		db.Stop(ctx)
		return nil, err
	}
	return db, nil
}

// Truncate empties every application table.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `TRUNCATE web_sessions, completions, resolutions, profiles, users CASCADE`)
	return err
}

// Stop closes the pool and terminates the container.
func (d *Database) Stop(ctx context.Context) {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		_ = d.container.Terminate(ctx) //nolint:errcheck // best effort teardown
	}
}
