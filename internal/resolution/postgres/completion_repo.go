// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/internal/store"
)

// CompletionRepository implements resolution.CompletionRepository using PostgreSQL.
type CompletionRepository struct {
	pool store.Pool
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(pool store.Pool) *CompletionRepository {
	return &CompletionRepository{pool: pool}
}

// Create persists a new completion.
func (r *CompletionRepository) Create(ctx context.Context, c *resolution.Completion) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO completions (id, resolution_id, activity_duration, completed_on, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID.String(), c.ResolutionID.String(), c.ActivityDuration, c.CompletedOn, c.CreatedAt)
	if err != nil {
		if cerr := constraintError(err, "COMPLETION_PARENT_MISSING"); cerr != nil {
			return oops.With("resolution_id", c.ResolutionID.String()).Wrap(cerr)
		}
		return oops.With("operation", "create completion").With("id", c.ID.String()).Wrap(err)
	}
	return nil
}

// ListByProfile returns the completions of every resolution the profile owns.
func (r *CompletionRepository) ListByProfile(ctx context.Context, profileID ulid.ULID) ([]*resolution.Completion, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT c.id, c.resolution_id, c.activity_duration, c.completed_on, c.created_at
		FROM completions c
		JOIN resolutions r ON r.id = c.resolution_id
		WHERE r.profile_id = $1
	`, profileID.String())
	if err != nil {
		return nil, oops.With("operation", "list completions").With("profile_id", profileID.String()).Wrap(err)
	}
	defer rows.Close()

	out := []*resolution.Completion{}
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, oops.With("operation", "scan completion").Wrap(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate completions").Wrap(err)
	}
	return out, nil
}

func scanCompletion(row pgx.Row) (*resolution.Completion, error) {
	var (
		c                resolution.Completion
		id, resolutionID string
	)
	if err := row.Scan(&id, &resolutionID, &c.ActivityDuration, &c.CompletedOn, &c.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	var err error
	if c.ID, err = ulid.Parse(id); err != nil {
		return nil, oops.Code("COMPLETION_CORRUPT_ID").With("id", id).Wrap(err)
	}
	if c.ResolutionID, err = ulid.Parse(resolutionID); err != nil {
		return nil, oops.Code("COMPLETION_CORRUPT_RESOLUTION_ID").With("id", id).Wrap(err)
	}
	c.CompletedOn = c.CompletedOn.UTC()
	return &c, nil
}

var _ resolution.CompletionRepository = (*CompletionRepository)(nil)
