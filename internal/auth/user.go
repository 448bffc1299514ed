// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxEmailLength    = 254
)

// usernameRegex matches usernames that start with a letter and contain only
// letters, numbers and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a registered account. ProfileID stays nil until the user's profile
// is created and is set exactly once.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	ProfileID    *ulid.ULID
	CreatedAt    time.Time
}

// HasProfile reports whether the user's profile has been created.
func (u *User) HasProfile() bool {
	return u.ProfileID != nil
}

// NewUser creates a validated User without a profile.
func NewUser(username, email, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername checks length and character rules.
func ValidateUsername(username string) error {
	invalid := oops.Code("AUTH_INVALID_USERNAME").With("username", username)
	switch {
	case username == "":
		return invalid.Wrapf(ErrInvalidInput, "username cannot be empty")
	case len(username) < MinUsernameLength:
		return invalid.With("min", MinUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at least %d characters", MinUsernameLength)
	case len(username) > MaxUsernameLength:
		return invalid.With("max", MaxUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at most %d characters", MaxUsernameLength)
	case !usernameRegex.MatchString(username):
		return invalid.Wrapf(ErrInvalidInput, "username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail requires a single bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	invalid := oops.Code("AUTH_INVALID_EMAIL").With("email", email)
	if email == "" {
		return invalid.Wrapf(ErrInvalidInput, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return invalid.Wrapf(ErrInvalidInput, "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid.Wrapf(ErrInvalidInput, "email is not a valid address")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrUsernameTaken when the username
	// exists (case-insensitive).
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)
}
