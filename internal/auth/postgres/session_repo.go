// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/store"
)

const sessionColumns = `id, token_hash, user_id, return_to, flashes, expires_at, created_at, last_seen_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// Each method is a single statement, so it is atomic per session row.
type SessionRepository struct {
	pool store.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool store.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, sess *auth.Session) error {
	flashes, err := encodeFlashes(sess.Flashes)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO web_sessions (id, token_hash, user_id, return_to, flashes, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		sess.ID.String(),
		sess.TokenHash,
		optionalULID(sess.UserID),
		optionalString(sess.ReturnTo),
		flashes,
		sess.ExpiresAt,
		sess.CreatedAt,
		sess.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert web_session").
			With("session_id", sess.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM web_sessions WHERE token_hash = $1`, tokenHash)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return sess, nil
}

// BindUser sets user_id and the new token hash and clears return_to,
// returning the cleared value. The row lock makes concurrent logins on one
// session consume the return-to path exactly once.
func (r *SessionRepository) BindUser(ctx context.Context, id, userID ulid.ULID, tokenHash string) (string, error) {
	var previous *string
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, return_to FROM web_sessions WHERE id = $1 FOR UPDATE
		)
		UPDATE web_sessions s
		SET user_id = $2, token_hash = $3, return_to = NULL
		FROM prev
		WHERE s.id = prev.id
		RETURNING prev.return_to
	`, id.String(), userID.String(), tokenHash).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("SESSION_BIND_FAILED").
			With("session_id", id.String()).
			With("user_id", userID.String()).
			Wrap(err)
	}
	if previous == nil {
		return "", nil
	}
	return *previous, nil
}

// ClearUser removes the principal and reports whether one was bound.
func (r *SessionRepository) ClearUser(ctx context.Context, id ulid.ULID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE web_sessions SET user_id = NULL
		WHERE id = $1 AND user_id IS NOT NULL
	`, id.String())
	if err != nil {
		return false, oops.Code("SESSION_CLEAR_FAILED").With("session_id", id.String()).Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// RememberReturnTo sets return_to only when it is unset.
func (r *SessionRepository) RememberReturnTo(ctx context.Context, id ulid.ULID, path string) (string, error) {
	var effective string
	err := r.pool.QueryRow(ctx, `
		UPDATE web_sessions SET return_to = COALESCE(return_to, $2)
		WHERE id = $1
		RETURNING return_to
	`, id.String(), path).Scan(&effective)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("SESSION_RETURN_TO_FAILED").With("session_id", id.String()).Wrap(err)
	}
	return effective, nil
}

// AddFlash appends a flash message to the JSONB list.
func (r *SessionRepository) AddFlash(ctx context.Context, id ulid.ULID, flash auth.Flash) error {
	encoded, err := json.Marshal(flash)
	if err != nil {
		return oops.Code("SESSION_FLASH_ENCODE_FAILED").Wrap(err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE web_sessions SET flashes = flashes || jsonb_build_array($2::jsonb)
		WHERE id = $1
	`, id.String(), string(encoded))
	if err != nil {
		return oops.Code("SESSION_FLASH_FAILED").With("session_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// TakeFlashes returns and clears pending flash messages in one statement.
func (r *SessionRepository) TakeFlashes(ctx context.Context, id ulid.ULID) ([]auth.Flash, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, flashes FROM web_sessions WHERE id = $1 FOR UPDATE
		)
		UPDATE web_sessions s
		SET flashes = '[]'::jsonb
		FROM prev
		WHERE s.id = prev.id
		RETURNING prev.flashes
	`, id.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_FLASH_FAILED").With("session_id", id.String()).Wrap(err)
	}
	return decodeFlashes(raw)
}

// Touch records activity and slides the expiry.
func (r *SessionRepository) Touch(ctx context.Context, id ulid.ULID, lastSeen, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE web_sessions SET last_seen_at = $2, expires_at = $3 WHERE id = $1
	`, id.String(), lastSeen, expiresAt)
	if err != nil {
		return oops.Code("SESSION_TOUCH_FAILED").With("session_id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM web_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		sess     auth.Session
		id       string
		userID   *string
		returnTo *string
		flashes  []byte
	)
	if err := row.Scan(&id, &sess.TokenHash, &userID, &returnTo, &flashes,
		&sess.ExpiresAt, &sess.CreatedAt, &sess.LastSeenAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	var err error
	if sess.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").With("id", id).Wrap(err)
	}
	if sess.UserID, err = parseOptionalULID(userID); err != nil {
		return nil, oops.Code("SESSION_CORRUPT_USER_ID").With("id", id).Wrap(err)
	}
	if returnTo != nil {
		sess.ReturnTo = *returnTo
	}
	if sess.Flashes, err = decodeFlashes(flashes); err != nil {
		return nil, err
	}
	return &sess, nil
}

func encodeFlashes(flashes []auth.Flash) (string, error) {
	if flashes == nil {
		flashes = []auth.Flash{}
	}
	b, err := json.Marshal(flashes)
	if err != nil {
		return "", oops.Code("SESSION_FLASH_ENCODE_FAILED").Wrap(err)
	}
	return string(b), nil
}

func decodeFlashes(raw []byte) ([]auth.Flash, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var flashes []auth.Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil, oops.Code("SESSION_FLASH_DECODE_FAILED").Wrap(err)
	}
	if len(flashes) == 0 {
		return nil, nil
	}
	return flashes, nil
}

func optionalULID(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
