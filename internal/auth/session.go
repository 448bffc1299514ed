// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy of a session token (64 hex chars).
const SessionTokenBytes = 32

// FlashKind classifies a flash message.
type FlashKind string

// Flash kinds.
const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashWarning FlashKind = "warning"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// Session is the server-side state behind a session cookie. A session exists
// from the first request on; UserID is nil while it is anonymous.
type Session struct {
	ID        ulid.ULID
	TokenHash string
	UserID    *ulid.ULID
	// ReturnTo is the path remembered by the failure protocol, "" when none.
	ReturnTo   string
	Flashes    []Flash
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession creates an anonymous session for a token hash.
func NewSession(tokenHash string, expiresAt time.Time) (*Session, error) {
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	return &Session{
		ID:         ulid.Make(),
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// Authenticated reports whether a principal is bound.
func (s *Session) Authenticated() bool {
	return s.UserID != nil
}

// IsExpiredAt reports whether the session is expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a random token and its hash.
// The plaintext token goes to the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks a plaintext token against a stored hash in
// constant time.
func VerifySessionToken(token, hash string) (bool, error) {
	if token == "" {
		return false, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}
	if hash == "" {
		return false, oops.Code("SESSION_HASH_EMPTY").Errorf("stored hash cannot be empty")
	}
	computed := HashSessionToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// SessionRepository persists sessions. Every mutation is atomic per session
// row, so concurrent requests on one session cannot interleave inside an
// operation.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves an unexpired or expired session by token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// BindUser sets the principal, replaces the token hash and clears the
	// return-to path in one step, returning the path that was cleared ("" when
	// none).
	BindUser(ctx context.Context, id, userID ulid.ULID, tokenHash string) (returnTo string, err error)

	// ClearUser removes the principal. It reports whether one was bound.
	ClearUser(ctx context.Context, id ulid.ULID) (bool, error)

	// RememberReturnTo stores path only when no return-to path is set and
	// returns the path in effect afterwards.
	RememberReturnTo(ctx context.Context, id ulid.ULID, path string) (string, error)

	// AddFlash appends a flash message.
	AddFlash(ctx context.Context, id ulid.ULID, flash Flash) error

	// TakeFlashes returns and clears pending flash messages.
	TakeFlashes(ctx context.Context, id ulid.ULID) ([]Flash, error)

	// Touch extends the session and records activity.
	Touch(ctx context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error

	// DeleteExpired removes sessions expired before now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
