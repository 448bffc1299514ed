// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidInput marks user-correctable validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
