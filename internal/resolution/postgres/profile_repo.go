// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/internal/store"
)

const profileColumns = `id, user_id, created_on, last_resolutions_update`

// ProfileRepository implements resolution.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool store.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool store.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// LockOwner locks the user row FOR UPDATE and returns its profile_id.
func (r *ProfileRepository) LockOwner(ctx context.Context, userID ulid.ULID) (*ulid.ULID, error) {
	var profileID *string
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT profile_id FROM users WHERE id = $1 FOR UPDATE`, userID.String()).Scan(&profileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_OWNER_MISSING").With("user_id", userID.String()).Wrap(resolution.ErrIntegrity)
	}
	if err != nil {
		return nil, oops.With("operation", "lock profile owner").With("user_id", userID.String()).Wrap(err)
	}
	if profileID == nil {
		return nil, nil
	}
	id, err := ulid.Parse(*profileID)
	if err != nil {
		return nil, oops.Code("PROFILE_CORRUPT_ID").With("profile_id", *profileID).Wrap(err)
	}
	return &id, nil
}

// Create inserts the profile and sets users.profile_id. Both statements
// run on the context's transaction when there is one.
func (r *ProfileRepository) Create(ctx context.Context, p *resolution.Profile) error {
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO profiles (id, user_id, created_on, last_resolutions_update)
		VALUES ($1, $2, $3, $4)
	`, p.ID.String(), p.UserID.String(), p.CreatedOn, p.LastResolutionsUpdate)
	if err != nil {
		if cerr := constraintError(err, "PROFILE_CONFLICT"); cerr != nil {
			return oops.With("user_id", p.UserID.String()).Wrap(cerr)
		}
		return oops.With("operation", "create profile").With("id", p.ID.String()).Wrap(err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE users SET profile_id = $1 WHERE id = $2 AND profile_id IS NULL
	`, p.ID.String(), p.UserID.String())
	if err != nil {
		if cerr := constraintError(err, "PROFILE_CONFLICT"); cerr != nil {
			return oops.With("user_id", p.UserID.String()).Wrap(cerr)
		}
		return oops.With("operation", "bind profile").With("id", p.ID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("PROFILE_CONFLICT").
			With("user_id", p.UserID.String()).
			Wrapf(resolution.ErrIntegrity, "user already has a profile")
	}
	return nil
}

// Get retrieves a profile by ID.
func (r *ProfileRepository) Get(ctx context.Context, id ulid.ULID) (*resolution.Profile, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id.String())
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get profile").With("id", id.String()).Wrap(err)
	}
	return p, nil
}

// GetByUser retrieves the profile owned by userID.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*resolution.Profile, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID.String())
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", userID.String()).Wrap(resolution.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get profile by user").With("user_id", userID.String()).Wrap(err)
	}
	return p, nil
}

// SetCheckpoint sets last_resolutions_update.
func (r *ProfileRepository) SetCheckpoint(ctx context.Context, id ulid.ULID, day time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE profiles SET last_resolutions_update = $2 WHERE id = $1`, id.String(), day)
	if err != nil {
		return oops.With("operation", "set checkpoint").With("id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	return nil
}

func scanProfile(row pgx.Row) (*resolution.Profile, error) {
	var (
		p              resolution.Profile
		id, userID     string
		lastResolution *time.Time
	)
	if err := row.Scan(&id, &userID, &p.CreatedOn, &lastResolution); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	var err error
	if p.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("PROFILE_CORRUPT_ID").With("id", id).Wrap(err)
	}
	if p.UserID, err = ulid.Parse(userID); err != nil {
		return nil, oops.Code("PROFILE_CORRUPT_USER_ID").With("id", id).Wrap(err)
	}
	p.CreatedOn = p.CreatedOn.UTC()
	if lastResolution != nil {
		day := lastResolution.UTC()
		p.LastResolutionsUpdate = &day
	}
	return &p, nil
}

var _ resolution.ProfileRepository = (*ProfileRepository)(nil)
