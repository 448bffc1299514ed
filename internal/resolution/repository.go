// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package resolution

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Transactor runs fn in a transaction carried by the context passed to fn.
// Repository calls made with that context join the transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProfileRepository manages profile persistence.
type ProfileRepository interface {
	// LockOwner locks the user row and returns its current profile id, or
	// nil when the user has none. Only meaningful inside a transaction.
	LockOwner(ctx context.Context, userID ulid.ULID) (*ulid.ULID, error)

	// Create stores the profile and binds it to its user. Returns
	// ErrIntegrity when the user already has a profile.
	Create(ctx context.Context, profile *Profile) error

	// Get retrieves a profile by ID.
	Get(ctx context.Context, id ulid.ULID) (*Profile, error)

	// GetByUser retrieves the profile owned by userID.
	GetByUser(ctx context.Context, userID ulid.ULID) (*Profile, error)

	// SetCheckpoint sets last_resolutions_update.
	SetCheckpoint(ctx context.Context, id ulid.ULID, day time.Time) error
}

// ResolutionRepository manages resolution persistence.
type ResolutionRepository interface {
	// Create stores a resolution. Returns ErrIntegrity when the profile
	// does not exist.
	Create(ctx context.Context, res *Resolution) error

	// Get retrieves a resolution by ID.
	Get(ctx context.Context, id ulid.ULID) (*Resolution, error)

	// ListByProfile returns a profile's resolutions oldest first.
	ListByProfile(ctx context.Context, profileID ulid.ULID) ([]*Resolution, error)
}

// CompletionRepository manages completion persistence.
type CompletionRepository interface {
	// Create stores a completion. Returns ErrIntegrity when the resolution
	// does not exist.
	Create(ctx context.Context, c *Completion) error

	// ListByProfile returns every completion of every resolution owned by
	// the profile, in no particular order.
	ListByProfile(ctx context.Context, profileID ulid.ULID) ([]*Completion, error)
}
