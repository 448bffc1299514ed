// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package authtest provides in-memory auth repositories for tests.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/auth"
)

// Users is an in-memory auth.UserRepository.
type Users struct {
	mu   sync.Mutex
	byID map[ulid.ULID]auth.User
	Err  error // returned by every call when set
}

// NewUsers creates an empty user store.
func NewUsers() *Users {
	return &Users{byID: make(map[ulid.ULID]auth.User)}
}

// Create implements auth.UserRepository.
func (u *Users) Create(_ context.Context, user *auth.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	for _, existing := range u.byID {
		if strings.EqualFold(existing.Username, user.Username) {
			return oops.Code("USER_USERNAME_TAKEN").With("username", user.Username).Wrap(auth.ErrUsernameTaken)
		}
	}
	u.byID[user.ID] = *user
	return nil
}

// GetByID implements auth.UserRepository.
func (u *Users) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByUsername implements auth.UserRepository.
func (u *Users) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	for _, user := range u.byID {
		if strings.EqualFold(user.Username, username) {
			return &user, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
}

// SetProfile binds a profile the way the profile store does.
func (u *Users) SetProfile(id, profileID ulid.ULID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user := u.byID[id]
	if user.ProfileID == nil {
		user.ProfileID = &profileID
		u.byID[id] = user
	}
}

// Delete removes a user, simulating a principal that no longer resolves.
func (u *Users) Delete(id ulid.ULID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.byID, id)
}

// Sessions is an in-memory auth.SessionRepository.
type Sessions struct {
	mu   sync.Mutex
	byID map[ulid.ULID]*auth.Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[ulid.ULID]*auth.Session)}
}

func (s *Sessions) get(id ulid.ULID) (*auth.Session, error) {
	sess, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return sess, nil
}

func clone(sess *auth.Session) *auth.Session {
	c := *sess
	if sess.UserID != nil {
		id := *sess.UserID
		c.UserID = &id
	}
	c.Flashes = append([]auth.Flash(nil), sess.Flashes...)
	return &c
}

// Create implements auth.SessionRepository.
func (s *Sessions) Create(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sess.ID] = clone(sess)
	return nil
}

// GetByTokenHash implements auth.SessionRepository.
func (s *Sessions) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byID {
		if sess.TokenHash == tokenHash {
			return clone(sess), nil
		}
	}
	return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// BindUser implements auth.SessionRepository.
func (s *Sessions) BindUser(_ context.Context, id, userID ulid.ULID, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	returnTo := sess.ReturnTo
	sess.UserID = &userID
	sess.TokenHash = tokenHash
	sess.ReturnTo = ""
	return returnTo, nil
}

// ClearUser implements auth.SessionRepository.
func (s *Sessions) ClearUser(_ context.Context, id ulid.ULID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return false, err
	}
	had := sess.UserID != nil
	sess.UserID = nil
	return had, nil
}

// RememberReturnTo implements auth.SessionRepository.
func (s *Sessions) RememberReturnTo(_ context.Context, id ulid.ULID, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	if sess.ReturnTo == "" {
		sess.ReturnTo = path
	}
	return sess.ReturnTo, nil
}

// AddFlash implements auth.SessionRepository.
func (s *Sessions) AddFlash(_ context.Context, id ulid.ULID, flash auth.Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Flashes = append(sess.Flashes, flash)
	return nil
}

// TakeFlashes implements auth.SessionRepository.
func (s *Sessions) TakeFlashes(_ context.Context, id ulid.ULID) ([]auth.Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	flashes := sess.Flashes
	sess.Flashes = nil
	return flashes, nil
}

// Touch implements auth.SessionRepository.
func (s *Sessions) Touch(_ context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.LastSeenAt = lastSeen
	sess.ExpiresAt = expiresAt
	return nil
}

// DeleteExpired implements auth.SessionRepository.
func (s *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.byID {
		if sess.ExpiresAt.Before(now) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// Snapshot returns a copy of the stored session.
func (s *Sessions) Snapshot(id ulid.ULID) (*auth.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return clone(sess), true
}

// Len reports how many sessions are stored.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
)
