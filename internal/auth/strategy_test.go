// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/auth/authtest"
	"github.com/resolute/resolute/pkg/errutil"
)

type tokenStrategy struct{ id ulid.ULID }

func (tokenStrategy) Name() string { return "token" }

func (tokenStrategy) IsApplicable(c auth.Credentials) bool { return c["token"] != "" }

func (s tokenStrategy) Authenticate(_ context.Context, c auth.Credentials) (auth.Outcome, error) {
	if c["token"] == "good" {
		return auth.Success(s.id), nil
	}
	return auth.Failure("bad token"), nil
}

func TestRegistry(t *testing.T) {
	users := authtest.NewUsers()
	password, err := auth.NewPasswordStrategy(users, plainHasher{})
	require.NoError(t, err)

	t.Run("keeps registration order", func(t *testing.T) {
		r, err := auth.NewRegistry(password, tokenStrategy{})
		require.NoError(t, err)
		assert.Equal(t, []string{"password", "token"}, r.Names())
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := auth.NewRegistry(password, password)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "STRATEGY_DUPLICATE")
	})

	t.Run("rejects nil strategy", func(t *testing.T) {
		r, err := auth.NewRegistry()
		require.NoError(t, err)
		assert.Error(t, r.Register(nil))
	})

	t.Run("selects the first applicable strategy", func(t *testing.T) {
		r, err := auth.NewRegistry(password, tokenStrategy{})
		require.NoError(t, err)

		assert.Equal(t, "password", r.Applicable(creds("alice", "pw")).Name())
		assert.Equal(t, "token", r.Applicable(auth.Credentials{"token": "x"}).Name())
		assert.Nil(t, r.Applicable(auth.Credentials{"username": "alice"}))
	})
}

func TestPasswordStrategy_IsApplicable(t *testing.T) {
	s, err := auth.NewPasswordStrategy(authtest.NewUsers(), plainHasher{})
	require.NoError(t, err)

	assert.True(t, s.IsApplicable(creds("alice", "pw")))
	assert.True(t, s.IsApplicable(auth.Credentials{"user[username]": "alice", "user[password]": "pw"}))
	assert.False(t, s.IsApplicable(creds("alice", "")))
	assert.False(t, s.IsApplicable(creds("", "pw")))
	assert.False(t, s.IsApplicable(nil))
}

func TestPasswordStrategy_Authenticate(t *testing.T) {
	ctx := context.Background()
	users := authtest.NewUsers()
	s, err := auth.NewPasswordStrategy(users, plainHasher{})
	require.NoError(t, err)

	alice, err := auth.NewUser("alice", "alice@example.com", "plain:correct-horse")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, alice))

	t.Run("correct password succeeds", func(t *testing.T) {
		out, err := s.Authenticate(ctx, creds("alice", "correct-horse"))
		require.NoError(t, err)
		require.True(t, out.Succeeded())
		assert.Equal(t, alice.ID, out.UserID())
	})

	t.Run("username lookup is case-insensitive", func(t *testing.T) {
		out, err := s.Authenticate(ctx, creds("ALICE", "correct-horse"))
		require.NoError(t, err)
		assert.True(t, out.Succeeded())
	})

	t.Run("unknown usernames always fail with the unknown-user message", func(t *testing.T) {
		for _, name := range []string{"bob", "mallory", "zed_99"} {
			for _, pw := range []string{"correct-horse", "", "x"} {
				out, err := s.Authenticate(ctx, creds(name, pw))
				require.NoError(t, err)
				assert.False(t, out.Succeeded())
				assert.Equal(t, auth.MsgUnknownUsername, out.Message())
			}
		}
	})

	t.Run("wrong passwords fail with the combination message", func(t *testing.T) {
		for _, pw := range []string{"wrong", "correct-horse ", "CORRECT-HORSE"} {
			out, err := s.Authenticate(ctx, creds("alice", pw))
			require.NoError(t, err)
			assert.False(t, out.Succeeded())
			assert.Equal(t, auth.MsgBadCredentials, out.Message())
		}
	})

	t.Run("store faults are errors, not failures", func(t *testing.T) {
		broken := authtest.NewUsers()
		broken.Err = errors.New("connection reset")
		bs, err := auth.NewPasswordStrategy(broken, plainHasher{})
		require.NoError(t, err)

		_, err = bs.Authenticate(ctx, creds("alice", "pw"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("a malformed stored hash is an error, never a wrong password", func(t *testing.T) {
		store := authtest.NewUsers()
		bad, err := auth.NewUser("carol", "carol@example.com", "not-a-hash")
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, bad))

		real, err := auth.NewPasswordStrategy(store, auth.NewArgon2idHasher())
		require.NoError(t, err)

		out, err := real.Authenticate(ctx, creds("carol", "pw"))
		require.Error(t, err)
		assert.False(t, out.Succeeded())
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("constructor validates dependencies", func(t *testing.T) {
		_, err := auth.NewPasswordStrategy(nil, plainHasher{})
		assert.Error(t, err)
		_, err = auth.NewPasswordStrategy(users, nil)
		assert.Error(t, err)
	})
}
