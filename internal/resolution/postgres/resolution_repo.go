// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/internal/store"
)

const resolutionColumns = `id, profile_id, title, weekly_frequency, activity_duration, created_at`

// ResolutionRepository implements resolution.ResolutionRepository using PostgreSQL.
type ResolutionRepository struct {
	pool store.Pool
}

// NewResolutionRepository creates a new ResolutionRepository.
func NewResolutionRepository(pool store.Pool) *ResolutionRepository {
	return &ResolutionRepository{pool: pool}
}

// Create persists a new resolution.
// Callers must validate the resolution before calling this method.
func (r *ResolutionRepository) Create(ctx context.Context, res *resolution.Resolution) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO resolutions (id, profile_id, title, weekly_frequency, activity_duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, res.ID.String(), res.ProfileID.String(), res.Title, res.WeeklyFrequency, res.ActivityDuration, res.CreatedAt)
	if err != nil {
		if cerr := constraintError(err, "RESOLUTION_PARENT_MISSING"); cerr != nil {
			return oops.With("profile_id", res.ProfileID.String()).Wrap(cerr)
		}
		return oops.With("operation", "create resolution").With("id", res.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a resolution by ID.
func (r *ResolutionRepository) Get(ctx context.Context, id ulid.ULID) (*resolution.Resolution, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id = $1`, id.String())
	res, err := scanResolution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESOLUTION_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get resolution").With("id", id.String()).Wrap(err)
	}
	return res, nil
}

// ListByProfile returns a profile's resolutions oldest first.
func (r *ResolutionRepository) ListByProfile(ctx context.Context, profileID ulid.ULID) ([]*resolution.Resolution, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+resolutionColumns+` FROM resolutions
		WHERE profile_id = $1
		ORDER BY created_at, id
	`, profileID.String())
	if err != nil {
		return nil, oops.With("operation", "list resolutions").With("profile_id", profileID.String()).Wrap(err)
	}
	defer rows.Close()

	out := []*resolution.Resolution{}
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, oops.With("operation", "scan resolution").Wrap(err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate resolutions").Wrap(err)
	}
	return out, nil
}

func scanResolution(row pgx.Row) (*resolution.Resolution, error) {
	var (
		res           resolution.Resolution
		id, profileID string
	)
	if err := row.Scan(&id, &profileID, &res.Title, &res.WeeklyFrequency, &res.ActivityDuration, &res.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	var err error
	if res.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("RESOLUTION_CORRUPT_ID").With("id", id).Wrap(err)
	}
	if res.ProfileID, err = ulid.Parse(profileID); err != nil {
		return nil, oops.Code("RESOLUTION_CORRUPT_PROFILE_ID").With("id", id).Wrap(err)
	}
	return &res, nil
}

var _ resolution.ResolutionRepository = (*ResolutionRepository)(nil)
