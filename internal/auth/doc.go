// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package auth authenticates resolute users.
//
// # Pieces
//
//   - PasswordHasher verifies stored hashes (argon2id, plus bcrypt for
//     accounts carried over from older deployments).
//   - Strategy and Registry form the pluggable credential check. Only the
//     password strategy ships today.
//   - SessionManager owns session state: the bound principal, the
//     remembered return-to path and pending flash messages.
//   - Gatekeeper is the per-request state machine. It resolves a session
//     to Anonymous, Authenticated or Failed and runs the failure protocol.
//   - Service handles registration.
//
// Domain types are built with their constructors (NewUser, NewSession);
// repositories receive pre-validated values.
package auth
