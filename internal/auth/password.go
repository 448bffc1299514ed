// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// User-facing failure messages. Unknown usernames and wrong passwords are
// reported differently on purpose.
const (
	MsgUnknownUsername = "The username you entered does not exist."
	MsgBadCredentials  = "The username and password combination is incorrect."
)

// PasswordStrategyName is the registry name of the password strategy.
const PasswordStrategyName = "password"

// Credential keys read by the password strategy. The nested form is what
// the login form posts.
var (
	usernameKeys = []string{"username", "user[username]"}
	passwordKeys = []string{"password", "user[password]"}
)

// dummyPasswordHash is verified when the username is unknown so both failure
// paths cost one hash computation. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// PasswordStrategy authenticates a username and password pair.
type PasswordStrategy struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewPasswordStrategy creates a PasswordStrategy.
func NewPasswordStrategy(users UserRepository, hasher PasswordHasher) (*PasswordStrategy, error) {
	if users == nil {
		return nil, oops.Code("STRATEGY_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("STRATEGY_INVALID").Errorf("password hasher is required")
	}
	return &PasswordStrategy{users: users, hasher: hasher}, nil
}

// Name implements Strategy.
func (s *PasswordStrategy) Name() string { return PasswordStrategyName }

// IsApplicable requires both a username and a password.
func (s *PasswordStrategy) IsApplicable(creds Credentials) bool {
	return creds.Get(usernameKeys...) != "" && creds.Get(passwordKeys...) != ""
}

// Authenticate implements Strategy.
func (s *PasswordStrategy) Authenticate(ctx context.Context, creds Credentials) (Outcome, error) {
	username := creds.Get(usernameKeys...)
	password := creds.Get(passwordKeys...)

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing only
		return Failure(MsgUnknownUsername), nil
	}
	if err != nil {
		return Outcome{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return Outcome{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !ok {
		return Failure(MsgBadCredentials), nil
	}
	return Success(user.ID), nil
}

var _ Strategy = (*PasswordStrategy)(nil)
