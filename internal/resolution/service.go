// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package resolution

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/progress"
)

// Recorder observes domain events for metrics.
type Recorder interface {
	RecordCompletion(late bool)
	RecordVerdict(verdict progress.Verdict)
}

type nopRecorder struct{}

func (nopRecorder) RecordCompletion(bool)          {}
func (nopRecorder) RecordVerdict(progress.Verdict) {}

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Transactor  Transactor
	Profiles    ProfileRepository
	Resolutions ResolutionRepository
	Completions CompletionRepository
	Engine      *progress.Engine
	Recorder    Recorder         // optional
	Clock       func() time.Time // optional, defaults to time.Now
}

// Service implements the profile, resolution and completion operations.
// Every method takes the authenticated user's ID and only touches data
// owned by that user.
type Service struct {
	tx          Transactor
	profiles    ProfileRepository
	resolutions ResolutionRepository
	completions CompletionRepository
	engine      *progress.Engine
	recorder    Recorder
	now         func() time.Time
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Transactor == nil || cfg.Profiles == nil || cfg.Resolutions == nil || cfg.Completions == nil {
		return nil, oops.Code("RESOLUTION_SERVICE_INVALID").Errorf("transactor and repositories are required")
	}
	s := &Service{
		tx:          cfg.Transactor,
		profiles:    cfg.Profiles,
		resolutions: cfg.Resolutions,
		completions: cfg.Completions,
		engine:      cfg.Engine,
		recorder:    cfg.Recorder,
		now:         cfg.Clock,
	}
	if s.engine == nil {
		s.engine = progress.NewEngine(progress.PolicyCountAndDuration)
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *Service) today() time.Time {
	return progress.Day(s.now())
}

// EnsureProfile returns the user's profile, creating it on first call.
// created reports whether this call created it. Concurrent calls for one
// user serialize on the user row, so exactly one profile is ever created.
func (s *Service) EnsureProfile(ctx context.Context, userID ulid.ULID) (profile *Profile, created bool, err error) {
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.profiles.LockOwner(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			profile, err = s.profiles.Get(ctx, *existing)
			if errors.Is(err, ErrNotFound) {
				return oops.Code("PROFILE_DANGLING").
					With("user_id", userID.String()).
					With("profile_id", existing.String()).
					Wrap(ErrIntegrity)
			}
			return err
		}
		profile = NewProfile(userID, s.today())
		if err := s.profiles.Create(ctx, profile); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, oops.With("operation", "ensure profile").With("user_id", userID.String()).Wrap(err)
	}
	if created {
		slog.InfoContext(ctx, "profile created", "user_id", userID.String(), "profile_id", profile.ID.String())
	}
	return profile, created, nil
}

// ProfileFor returns the user's profile or ErrProfileRequired.
func (s *Service) ProfileFor(ctx context.Context, userID ulid.ULID) (*Profile, error) {
	profile, err := s.profiles.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("PROFILE_REQUIRED").With("user_id", userID.String()).Wrap(ErrProfileRequired)
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListResolutions returns the resolutions of the user's profile.
func (s *Service) ListResolutions(ctx context.Context, userID ulid.ULID) ([]*Resolution, error) {
	profile, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolutions.ListByProfile(ctx, profile.ID)
}

// ConfirmResolutions moves the profile's checkpoint to today.
func (s *Service) ConfirmResolutions(ctx context.Context, userID ulid.ULID) (*Profile, error) {
	profile, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	if err := s.profiles.SetCheckpoint(ctx, profile.ID, today); err != nil {
		return nil, err
	}
	profile.LastResolutionsUpdate = &today
	return profile, nil
}

// AddResolution creates a resolution under the user's profile.
func (s *Service) AddResolution(ctx context.Context, userID ulid.ULID, title string, weeklyFrequency, activityDuration int) (*Resolution, error) {
	profile, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &Resolution{
		ID:               ulid.Make(),
		ProfileID:        profile.ID,
		Title:            title,
		WeeklyFrequency:  weeklyFrequency,
		ActivityDuration: activityDuration,
		CreatedAt:        s.now().UTC(),
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := s.resolutions.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// CompletionResult is the outcome of RecordCompletion.
type CompletionResult struct {
	Completion *Completion
	// Late is set when the completion predates the profile's checkpoint.
	Late bool
}

// RecordCompletion logs a completion against one of the user's resolutions.
// A resolution owned by another profile is reported as not found.
func (s *Service) RecordCompletion(ctx context.Context, userID, resolutionID ulid.ULID, activityDuration int, completedOn time.Time) (*CompletionResult, error) {
	profile, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := &Completion{
		ID:               ulid.Make(),
		ResolutionID:     resolutionID,
		ActivityDuration: activityDuration,
		CompletedOn:      progress.Day(completedOn),
		CreatedAt:        s.now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	res, err := s.resolutions.Get(ctx, resolutionID)
	if err != nil {
		return nil, err
	}
	if res.ProfileID != profile.ID {
		return nil, oops.Code("RESOLUTION_NOT_FOUND").
			With("resolution_id", resolutionID.String()).
			With("profile_id", profile.ID.String()).
			Wrap(ErrNotFound)
	}

	if err := s.completions.Create(ctx, c); err != nil {
		return nil, err
	}
	late := progress.IsLate(c.CompletedOn, profile.LastResolutionsUpdate)
	s.recorder.RecordCompletion(late)
	if late {
		slog.InfoContext(ctx, "late completion submitted",
			"resolution_id", resolutionID.String(),
			"completed_on", c.CompletedOn.Format(progress.DateLayout))
	}
	return &CompletionResult{Completion: c, Late: late}, nil
}

// ResolutionProgress is one resolution's adherence in a week.
type ResolutionProgress struct {
	Resolution *Resolution
	Summary    *progress.Summary
	// Late lists IDs of this week's completions dated before the checkpoint.
	Late []string
}

// Report is the weekly progress view of a profile.
type Report struct {
	Profile     *Profile
	Window      progress.Window
	Future      bool
	Resolutions []ResolutionProgress
}

// Progress computes week `week` of the profile's resolutions. The caller
// may only view their own profile; any other profile is not found.
func (s *Service) Progress(ctx context.Context, userID, profileID ulid.ULID, week int) (*Report, error) {
	if week < 1 {
		return nil, &ValidationError{Field: "week_num", Message: "must be a positive integer"}
	}

	profile, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.ID != profileID {
		return nil, oops.Code("PROFILE_NOT_FOUND").
			With("profile_id", profileID.String()).
			Wrap(ErrNotFound)
	}

	resolutions, err := s.resolutions.ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	completions, err := s.completions.ListByProfile(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	byResolution := make(map[ulid.ULID][]*Completion, len(resolutions))
	for _, c := range completions {
		byResolution[c.ResolutionID] = append(byResolution[c.ResolutionID], c)
	}

	report := &Report{Profile: profile, Resolutions: make([]ResolutionProgress, 0, len(resolutions))}
	for _, res := range resolutions {
		logged := byResolution[res.ID]
		entries := make([]progress.Entry, len(logged))
		late := make(map[string]bool, len(logged))
		for i, c := range logged {
			entries[i] = c.Entry()
			late[entries[i].ID] = progress.IsLate(c.CompletedOn, profile.LastResolutionsUpdate)
		}

		summary, err := s.engine.Week(res.Goal(), entries, profile.CreatedOn, week)
		if err != nil {
			return nil, err
		}
		rp := ResolutionProgress{Resolution: res, Summary: summary, Late: []string{}}
		for _, e := range summary.Entries {
			if late[e.ID] {
				rp.Late = append(rp.Late, e.ID)
			}
		}
		s.recorder.RecordVerdict(summary.Verdict)
		report.Resolutions = append(report.Resolutions, rp)
	}

	report.Window, _ = progress.WeekWindow(profile.CreatedOn, week)
	report.Future = report.Window.Start.After(s.today())
	return report, nil
}
