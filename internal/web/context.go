// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"context"

	"github.com/resolute/resolute/internal/auth"
)

type requestContextKey struct{}

// RequestContext is the per-request state threaded through middleware and
// handlers in place of ambient session globals.
type RequestContext struct {
	Session *auth.Session
	// User is the resolved principal, nil when anonymous.
	User *auth.User
	// State is the gatekeeper's last decision for this request.
	State auth.State
}

// Authenticated reports whether a principal is bound.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.User != nil
}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the request context, or nil outside the session
// middleware.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}
