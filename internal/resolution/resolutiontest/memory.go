// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package resolutiontest provides an in-memory resolution store for tests.
package resolutiontest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/resolution"
)

// Store is an in-memory implementation of the resolution repositories and
// Transactor. Transactions serialize on a single lock and do not roll back.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	profiles    map[ulid.ULID]resolution.Profile
	owners      map[ulid.ULID]ulid.ULID // user -> profile
	resolutions map[ulid.ULID]resolution.Resolution
	completions map[ulid.ULID]resolution.Completion

	// OnProfileCreated mirrors users.profile_id for callers that keep users
	// elsewhere.
	OnProfileCreated func(userID, profileID ulid.ULID)
	// BeforeCreate runs inside Create before the profile is stored.
	BeforeCreate func()
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles:    make(map[ulid.ULID]resolution.Profile),
		owners:      make(map[ulid.ULID]ulid.ULID),
		resolutions: make(map[ulid.ULID]resolution.Resolution),
		completions: make(map[ulid.ULID]resolution.Completion),
	}
}

// InTransaction implements resolution.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// Profiles returns the store as a ProfileRepository.
func (s *Store) Profiles() resolution.ProfileRepository { return profileRepo{s} }

// Resolutions returns the store as a ResolutionRepository.
func (s *Store) Resolutions() resolution.ResolutionRepository { return resolutionRepo{s} }

// Completions returns the store as a CompletionRepository.
func (s *Store) Completions() resolution.CompletionRepository { return completionRepo{s} }

// ProfileCount returns how many profiles exist.
func (s *Store) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

type profileRepo struct{ s *Store }

func (r profileRepo) LockOwner(_ context.Context, userID ulid.ULID) (*ulid.ULID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.owners[userID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (r profileRepo) Create(_ context.Context, p *resolution.Profile) error {
	if r.s.BeforeCreate != nil {
		r.s.BeforeCreate()
	}
	r.s.mu.Lock()
	if _, taken := r.s.owners[p.UserID]; taken {
		r.s.mu.Unlock()
		return oops.Code("PROFILE_CONFLICT").With("user_id", p.UserID.String()).Wrap(resolution.ErrIntegrity)
	}
	r.s.profiles[p.ID] = *p
	r.s.owners[p.UserID] = p.ID
	hook := r.s.OnProfileCreated
	r.s.mu.Unlock()

	if hook != nil {
		hook(p.UserID, p.ID)
	}
	return nil
}

func (r profileRepo) Get(_ context.Context, id ulid.ULID) (*resolution.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	return &p, nil
}

func (r profileRepo) GetByUser(ctx context.Context, userID ulid.ULID) (*resolution.Profile, error) {
	r.s.mu.Lock()
	id, ok := r.s.owners[userID]
	r.s.mu.Unlock()
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", userID.String()).Wrap(resolution.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r profileRepo) SetCheckpoint(_ context.Context, id ulid.ULID, day time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return oops.Code("PROFILE_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	p.LastResolutionsUpdate = &day
	r.s.profiles[id] = p
	return nil
}

type resolutionRepo struct{ s *Store }

func (r resolutionRepo) Create(_ context.Context, res *resolution.Resolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[res.ProfileID]; !ok {
		return oops.Code("RESOLUTION_PARENT_MISSING").With("profile_id", res.ProfileID.String()).Wrap(resolution.ErrIntegrity)
	}
	r.s.resolutions[res.ID] = *res
	return nil
}

func (r resolutionRepo) Get(_ context.Context, id ulid.ULID) (*resolution.Resolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.resolutions[id]
	if !ok {
		return nil, oops.Code("RESOLUTION_NOT_FOUND").With("id", id.String()).Wrap(resolution.ErrNotFound)
	}
	return &res, nil
}

func (r resolutionRepo) ListByProfile(_ context.Context, profileID ulid.ULID) ([]*resolution.Resolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*resolution.Resolution{}
	for _, res := range r.s.resolutions {
		if res.ProfileID == profileID {
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

type completionRepo struct{ s *Store }

func (r completionRepo) Create(_ context.Context, c *resolution.Completion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resolutions[c.ResolutionID]; !ok {
		return oops.Code("COMPLETION_PARENT_MISSING").With("resolution_id", c.ResolutionID.String()).Wrap(resolution.ErrIntegrity)
	}
	r.s.completions[c.ID] = *c
	return nil
}

func (r completionRepo) ListByProfile(_ context.Context, profileID ulid.ULID) ([]*resolution.Completion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*resolution.Completion{}
	for _, c := range r.s.completions {
		if r.s.resolutions[c.ResolutionID].ProfileID == profileID {
			out = append(out, &c)
		}
	}
	return out, nil
}

var (
	_ resolution.Transactor           = (*Store)(nil)
	_ resolution.ProfileRepository    = profileRepo{}
	_ resolution.ResolutionRepository = resolutionRepo{}
	_ resolution.CompletionRepository = completionRepo{}
)
