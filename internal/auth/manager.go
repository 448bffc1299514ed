// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is used when NewSessionManager gets a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager owns what the application keeps in session state: the
// serialized principal, the return-to path and flash messages.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	ttl      time.Duration
	now      func() time.Time
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithSessionClock overrides the manager's clock.
func WithSessionClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(sessions SessionRepository, users UserRepository, ttl time.Duration, opts ...SessionManagerOption) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session repository is required")
	}
	if users == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("user repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &SessionManager{sessions: sessions, users: users, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start resolves the session behind token, extending its lifetime. When the
// token is empty, unknown or expired a fresh anonymous session is created and
// its token returned; otherwise token is returned unchanged.
func (m *SessionManager) Start(ctx context.Context, token string) (*Session, string, error) {
	now := m.now().UTC()

	if token != "" {
		sess, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
		switch {
		case err == nil && !sess.IsExpiredAt(now):
			sess.LastSeenAt = now
			sess.ExpiresAt = now.Add(m.ttl)
			if err := m.sessions.Touch(ctx, sess.ID, sess.LastSeenAt, sess.ExpiresAt); err != nil {
				slog.WarnContext(ctx, "session touch failed", "session_id", sess.ID.String(), "error", err)
			}
			return sess, token, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, "", oops.Code("SESSION_LOAD_FAILED").Wrap(err)
		}
	}

	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}
	sess, err := NewSession(hash, now.Add(m.ttl))
	if err != nil {
		return nil, "", err
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}
	return sess, token, nil
}

// Serialize turns a principal into the identifier stored in the session.
func (m *SessionManager) Serialize(user *User) string {
	return user.ID.String()
}

// Deserialize loads the principal for an identifier. An identifier that no
// longer resolves yields (nil, nil): the caller is simply not authenticated.
func (m *SessionManager) Deserialize(ctx context.Context, id string) (*User, error) {
	userID, err := ulid.Parse(id)
	if err != nil {
		return nil, nil //nolint:nilnil // unresolvable principal means anonymous
	}
	user, err := m.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil //nolint:nilnil // unresolvable principal means anonymous
	}
	if err != nil {
		return nil, oops.Code("SESSION_DESERIALIZE_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// Current returns the principal bound to sess, or nil.
func (m *SessionManager) Current(ctx context.Context, sess *Session) (*User, error) {
	if sess == nil || sess.UserID == nil {
		return nil, nil //nolint:nilnil // anonymous session
	}
	return m.Deserialize(ctx, sess.UserID.String())
}

// Login binds user to sess and consumes the remembered return-to path. The
// session is reissued under a new token, so any token handed out before the
// login stops resolving. It returns the consumed path ("" when none was
// remembered) and the new token for the client.
func (m *SessionManager) Login(ctx context.Context, sess *Session, user *User) (returnTo, token string, err error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return "", "", err
	}
	returnTo, err = m.sessions.BindUser(ctx, sess.ID, user.ID, hash)
	if err != nil {
		return "", "", oops.Code("SESSION_LOGIN_FAILED").
			With("session_id", sess.ID.String()).
			With("user_id", m.Serialize(user)).
			Wrap(err)
	}
	userID := user.ID
	sess.UserID = &userID
	sess.TokenHash = hash
	sess.ReturnTo = ""
	return returnTo, token, nil
}

// Logout clears the principal. Logging out an anonymous session is a no-op;
// the result reports whether a principal was cleared.
func (m *SessionManager) Logout(ctx context.Context, sess *Session) (bool, error) {
	if sess == nil {
		return false, nil
	}
	cleared, err := m.sessions.ClearUser(ctx, sess.ID)
	if err != nil {
		return false, oops.Code("SESSION_LOGOUT_FAILED").With("session_id", sess.ID.String()).Wrap(err)
	}
	sess.UserID = nil
	return cleared, nil
}

// RememberReturnTo keeps path unless a return-to path is already remembered.
func (m *SessionManager) RememberReturnTo(ctx context.Context, sess *Session, path string) (string, error) {
	effective, err := m.sessions.RememberReturnTo(ctx, sess.ID, path)
	if err != nil {
		return "", oops.Code("SESSION_RETURN_TO_FAILED").With("session_id", sess.ID.String()).Wrap(err)
	}
	sess.ReturnTo = effective
	return effective, nil
}

// Flash queues a message for the next rendered page.
func (m *SessionManager) Flash(ctx context.Context, sess *Session, kind FlashKind, message string) error {
	flash := Flash{Kind: kind, Message: message}
	if err := m.sessions.AddFlash(ctx, sess.ID, flash); err != nil {
		return oops.Code("SESSION_FLASH_FAILED").With("session_id", sess.ID.String()).Wrap(err)
	}
	sess.Flashes = append(sess.Flashes, flash)
	return nil
}

// TakeFlashes returns and clears pending flash messages.
func (m *SessionManager) TakeFlashes(ctx context.Context, sess *Session) ([]Flash, error) {
	flashes, err := m.sessions.TakeFlashes(ctx, sess.ID)
	if err != nil {
		return nil, oops.Code("SESSION_FLASH_FAILED").With("session_id", sess.ID.String()).Wrap(err)
	}
	sess.Flashes = nil
	return flashes, nil
}

// Sweep deletes expired sessions.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
