// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/auth/authtest"
)

// plainHasher stores passwords with a prefix so tests skip argon2 cost.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(password, hash string) (bool, error) {
	return hash == "plain:"+password, nil
}

type recorded struct {
	strategy, result string
}

type fakeRecorder struct {
	auths    []recorded
	captures []bool
}

func (r *fakeRecorder) RecordAuthentication(strategy, result string) {
	r.auths = append(r.auths, recorded{strategy, result})
}

func (r *fakeRecorder) RecordFailureProtocol(captured bool) {
	r.captures = append(r.captures, captured)
}

type fixture struct {
	users    *authtest.Users
	sessions *authtest.Sessions
	manager  *auth.SessionManager
	gate     *auth.Gatekeeper
	recorder *fakeRecorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    authtest.NewUsers(),
		sessions: authtest.NewSessions(),
		recorder: &fakeRecorder{},
		now:      time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	var err error
	f.manager, err = auth.NewSessionManager(f.sessions, f.users, time.Hour,
		auth.WithSessionClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	password, err := auth.NewPasswordStrategy(f.users, plainHasher{})
	require.NoError(t, err)
	registry, err := auth.NewRegistry(password)
	require.NoError(t, err)

	f.gate, err = auth.NewGatekeeper(f.manager, registry, auth.WithRecorder(f.recorder))
	require.NoError(t, err)
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(username, username+"@example.com", "plain:"+password)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) start(t *testing.T) (*auth.Session, string) {
	t.Helper()
	sess, token, err := f.manager.Start(context.Background(), "")
	require.NoError(t, err)
	return sess, token
}

func (f *fixture) stored(t *testing.T, sess *auth.Session) *auth.Session {
	t.Helper()
	got, ok := f.sessions.Snapshot(sess.ID)
	require.True(t, ok)
	return got
}

func creds(username, password string) auth.Credentials {
	return auth.Credentials{"username": username, "password": password}
}
