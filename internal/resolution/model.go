// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package resolution

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/resolute/resolute/internal/progress"
)

// Validation limits.
const (
	MaxTitleLength      = 200
	MaxWeeklyFrequency  = 7 * 24
	MaxActivityDuration = 24 * 60
)

// Profile is a user's goal-tracking profile.
type Profile struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	CreatedOn time.Time
	// LastResolutionsUpdate is the checkpoint date; nil until the user
	// first confirms their resolutions.
	LastResolutionsUpdate *time.Time
}

// NewProfile creates a profile for userID created on the given day.
func NewProfile(userID ulid.ULID, today time.Time) *Profile {
	return &Profile{
		ID:        ulid.Make(),
		UserID:    userID,
		CreatedOn: progress.Day(today),
	}
}

// Resolution is a weekly target activity.
type Resolution struct {
	ID               ulid.ULID
	ProfileID        ulid.ULID
	Title            string
	WeeklyFrequency  int
	ActivityDuration int // minutes
	CreatedAt        time.Time
}

// Goal returns the resolution's weekly target.
func (r *Resolution) Goal() progress.Goal {
	return progress.Goal{WeeklyFrequency: r.WeeklyFrequency, ActivityDuration: r.ActivityDuration}
}

// Validate checks the user-supplied fields.
func (r *Resolution) Validate() error {
	title := strings.TrimSpace(r.Title)
	switch {
	case title == "":
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	case !utf8.ValidString(title):
		return &ValidationError{Field: "title", Message: "must be valid UTF-8"}
	case len(title) > MaxTitleLength:
		return &ValidationError{Field: "title", Message: "is too long"}
	}
	if r.WeeklyFrequency < 1 || r.WeeklyFrequency > MaxWeeklyFrequency {
		return &ValidationError{Field: "weekly_frequency", Message: "must be a positive number of times per week"}
	}
	if r.ActivityDuration < 1 || r.ActivityDuration > MaxActivityDuration {
		return &ValidationError{Field: "activity_duration", Message: "must be a positive number of minutes"}
	}
	return nil
}

// Completion is one logged occurrence of a resolution.
type Completion struct {
	ID               ulid.ULID
	ResolutionID     ulid.ULID
	ActivityDuration int // minutes
	CompletedOn      time.Time
	CreatedAt        time.Time
}

// Entry adapts the completion for the progress engine.
func (c *Completion) Entry() progress.Entry {
	return progress.Entry{ID: c.ID.String(), CompletedOn: c.CompletedOn, Duration: c.ActivityDuration}
}

// Validate checks the user-supplied fields.
func (c *Completion) Validate() error {
	if c.ActivityDuration < 1 || c.ActivityDuration > MaxActivityDuration {
		return &ValidationError{Field: "activity_duration", Message: "must be a positive number of minutes"}
	}
	if c.CompletedOn.IsZero() {
		return &ValidationError{Field: "completed_on", Message: "is required"}
	}
	return nil
}
