// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credentials are the request fields a strategy may inspect.
type Credentials map[string]string

// Get returns the first non-empty value among keys.
func (c Credentials) Get(keys ...string) string {
	for _, k := range keys {
		if v := c[k]; v != "" {
			return v
		}
	}
	return ""
}

// Outcome is the result of a strategy attempt: either a principal or a
// user-facing failure message.
type Outcome struct {
	userID  ulid.ULID
	message string
	ok      bool
}

// Success builds a successful outcome for the given principal.
func Success(userID ulid.ULID) Outcome {
	return Outcome{userID: userID, ok: true}
}

// Failure builds a failed outcome with a user-facing message.
func Failure(message string) Outcome {
	return Outcome{message: message}
}

// Succeeded reports whether the attempt identified a principal.
func (o Outcome) Succeeded() bool { return o.ok }

// UserID is the principal of a successful outcome.
func (o Outcome) UserID() ulid.ULID { return o.userID }

// Message is the failure message of an unsuccessful outcome.
func (o Outcome) Message() string { return o.message }

// Strategy is a pluggable credential check.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// IsApplicable is a cheap precondition. Inapplicable strategies are
	// skipped without attempting verification.
	IsApplicable(creds Credentials) bool

	// Authenticate verifies creds. Bad credentials are a Failure outcome;
	// the error return is reserved for infrastructure faults.
	Authenticate(ctx context.Context, creds Credentials) (Outcome, error)
}

// Registry holds strategies in registration order.
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
}

// NewRegistry creates a registry holding the given strategies.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{}
	for _, s := range strategies {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a strategy. Names must be unique.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return oops.Code("STRATEGY_INVALID").Errorf("strategy cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.strategies {
		if existing.Name() == s.Name() {
			return oops.Code("STRATEGY_DUPLICATE").With("strategy", s.Name()).
				Errorf("strategy %q already registered", s.Name())
		}
	}
	r.strategies = append(r.strategies, s)
	return nil
}

// Applicable returns the first strategy whose precondition holds, or nil.
func (r *Registry) Applicable(creds Credentials) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies {
		if s.IsApplicable(creds) {
			return s
		}
	}
	return nil
}

// Names lists registered strategies in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}
