// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Paths the failure protocol redirects through.
const (
	LoginPath   = "/auth/login"
	DefaultPath = "/"
)

// MsgLoginRequired is the failure reason when no strategy applies.
const MsgLoginRequired = "You must log in"

// DefaultReturnToExclusions keeps the auth pages themselves from becoming a
// return-to target.
var DefaultReturnToExclusions = []string{"/auth/*"}

// State is where a request stands in the authentication state machine.
type State int

// Request states.
const (
	StateAnonymous State = iota
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "anonymous"
	}
}

// Decision is the Gatekeeper's verdict for one request.
type Decision struct {
	State State
	// User is set when State is StateAuthenticated.
	User *User
	// Reason is the user-facing message when State is StateFailed.
	Reason string
	// ReturnTo is the return-to path consumed by a fresh login.
	ReturnTo string
	// Token is the session token issued by a fresh login. The client must
	// be handed it, since the token it presented no longer resolves.
	Token string
	// Strategy names the strategy that ran, if any.
	Strategy string
}

// Redirect is where a freshly authenticated request should go next.
func (d Decision) Redirect() string {
	if d.ReturnTo != "" {
		return d.ReturnTo
	}
	return DefaultPath
}

// Recorder observes authentication outcomes.
type Recorder interface {
	RecordAuthentication(strategy, result string)
	RecordFailureProtocol(captured bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthentication(string, string) {}
func (nopRecorder) RecordFailureProtocol(bool)          {}

// Gatekeeper runs the per-request authentication state machine.
type Gatekeeper struct {
	manager  *SessionManager
	registry *Registry
	exclude  []glob.Glob
	recorder Recorder
}

// GatekeeperOption configures a Gatekeeper.
type GatekeeperOption func(*gatekeeperOptions)

type gatekeeperOptions struct {
	exclude  []string
	recorder Recorder
}

// WithReturnToExclusions sets glob patterns ('/' separated) of paths never
// remembered as a return-to target.
func WithReturnToExclusions(patterns []string) GatekeeperOption {
	return func(o *gatekeeperOptions) { o.exclude = patterns }
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(r Recorder) GatekeeperOption {
	return func(o *gatekeeperOptions) { o.recorder = r }
}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper(manager *SessionManager, registry *Registry, opts ...GatekeeperOption) (*Gatekeeper, error) {
	if manager == nil {
		return nil, oops.Code("GATEKEEPER_INVALID").Errorf("session manager is required")
	}
	if registry == nil {
		return nil, oops.Code("GATEKEEPER_INVALID").Errorf("strategy registry is required")
	}

	o := gatekeeperOptions{exclude: DefaultReturnToExclusions, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}

	g := &Gatekeeper{manager: manager, registry: registry, recorder: o.recorder}
	for _, pattern := range o.exclude {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.Code("GATEKEEPER_INVALID").With("pattern", pattern).Wrap(err)
		}
		g.exclude = append(g.exclude, compiled)
	}
	return g, nil
}

// Manager returns the session manager.
func (g *Gatekeeper) Manager() *SessionManager { return g.manager }

// Resolve checks whether the session already carries a principal.
func (g *Gatekeeper) Resolve(ctx context.Context, sess *Session) (Decision, error) {
	user, err := g.manager.Current(ctx, sess)
	if err != nil {
		return Decision{}, err
	}
	if user == nil {
		return Decision{State: StateAnonymous}, nil
	}
	return Decision{State: StateAuthenticated, User: user}, nil
}

// Authenticate moves an anonymous request forward. A session that already
// resolves to a principal stays authenticated without running strategies.
// Otherwise the first applicable strategy decides; with none applicable the
// request stays anonymous unless required is set, in which case it fails.
func (g *Gatekeeper) Authenticate(ctx context.Context, sess *Session, creds Credentials, required bool) (Decision, error) {
	current, err := g.Resolve(ctx, sess)
	if err != nil || current.State == StateAuthenticated {
		return current, err
	}

	strategy := g.registry.Applicable(creds)
	if strategy == nil {
		if !required {
			return current, nil
		}
		g.recorder.RecordAuthentication("none", "not_applicable")
		return Decision{State: StateFailed, Reason: MsgLoginRequired}, nil
	}

	name := strategy.Name()
	outcome, err := strategy.Authenticate(ctx, creds)
	if err != nil {
		g.recorder.RecordAuthentication(name, "error")
		return Decision{}, oops.Code("AUTHENTICATE_FAILED").With("strategy", name).Wrap(err)
	}
	if !outcome.Succeeded() {
		g.recorder.RecordAuthentication(name, "failure")
		slog.InfoContext(ctx, "authentication failed", "strategy", name, "reason", outcome.Message())
		return Decision{State: StateFailed, Reason: outcome.Message(), Strategy: name}, nil
	}

	user, err := g.manager.Deserialize(ctx, outcome.UserID().String())
	if err != nil {
		return Decision{}, err
	}
	if user == nil {
		g.recorder.RecordAuthentication(name, "failure")
		return Decision{State: StateFailed, Reason: MsgUnknownUsername, Strategy: name}, nil
	}

	returnTo, token, err := g.manager.Login(ctx, sess, user)
	if err != nil {
		return Decision{}, err
	}
	g.recorder.RecordAuthentication(name, "success")
	slog.InfoContext(ctx, "user logged in", "strategy", name, "user_id", user.ID.String())
	return Decision{State: StateAuthenticated, User: user, ReturnTo: returnTo, Token: token, Strategy: name}, nil
}

// Fail runs the failure protocol and returns the path to redirect to. The
// attempted path is remembered only when nothing is remembered yet, it is a
// local path and it matches no exclusion. Pass "" for requests that should
// never be replayed.
func (g *Gatekeeper) Fail(ctx context.Context, sess *Session, attemptedPath, reason string) (string, error) {
	if reason == "" {
		reason = MsgLoginRequired
	}

	captured := false
	if g.capturable(attemptedPath) {
		effective, err := g.manager.RememberReturnTo(ctx, sess, attemptedPath)
		if err != nil {
			return "", err
		}
		captured = effective == attemptedPath
	}
	g.recorder.RecordFailureProtocol(captured)

	if err := g.manager.Flash(ctx, sess, FlashError, reason); err != nil {
		return "", err
	}
	return LoginPath, nil
}

// Logout returns the request to anonymous, whatever its state.
func (g *Gatekeeper) Logout(ctx context.Context, sess *Session) (bool, error) {
	return g.manager.Logout(ctx, sess)
}

func (g *Gatekeeper) capturable(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return false
	}
	route := path
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	for _, g := range g.exclude {
		if g.Match(route) {
			return false
		}
	}
	return true
}
