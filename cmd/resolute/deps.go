// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package main

import (
	"context"
	"net"

	"github.com/resolute/resolute/internal/config"
	"github.com/resolute/resolute/internal/observability"
	"github.com/resolute/resolute/internal/store"
)

// Database is the part of *pgxpool.Pool the server needs.
type Database interface {
	store.Pool
	store.Pinger
	Close()
}

// ObservabilityServer is the metrics and health endpoint server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, cfg config.DatabaseConfig) (Database, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the web listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// Ready, when set, receives the web listener address once serving.
	Ready chan<- string
}

func (d *ServeDeps) setDefaults() {
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = func(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
			return store.Connect(ctx, cfg.URL, cfg.ConnectAttempts, cfg.ConnectBackoff)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
}
