// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package progress

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DaysPerWeek is the length of a week bucket.
const DaysPerWeek = 7

// MaxWeek is the last week with a window of its own. It lies more than ten
// thousand years past any anchor, beyond every date ParseDate accepts.
const MaxWeek = 522_000

const secondsPerDay = 24 * 60 * 60

// ErrInvalidWeek is returned for week numbers below 1.
var ErrInvalidWeek = errors.New("week number must be a positive integer")

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, oops.Code("PROGRESS_INVALID_DATE").With("value", s).Wrap(err)
	}
	return t, nil
}

// Window is one week bucket. End is exclusive.
type Window struct {
	Week  int
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	day = Day(day)
	return !day.Before(w.Start) && day.Before(w.End)
}

// WeekWindow returns the window for the given 1-based week. Weeks past
// MaxWeek share its window, so they are always in the future and never
// contain a completion.
func WeekWindow(anchor time.Time, week int) (Window, error) {
	if week < 1 {
		return Window{}, oops.Code("PROGRESS_INVALID_WEEK").With("week", week).Wrap(ErrInvalidWeek)
	}
	offset := min(week, MaxWeek) - 1
	start := Day(anchor).AddDate(0, 0, DaysPerWeek*offset)
	return Window{Week: week, Start: start, End: start.AddDate(0, 0, DaysPerWeek)}, nil
}

// WeekOf returns the week containing day. ok is false when day precedes
// the anchor.
func WeekOf(anchor, day time.Time) (week int, ok bool) {
	a, d := Day(anchor), Day(day)
	if d.Before(a) {
		return 0, false
	}
	days := int((d.Unix() - a.Unix()) / secondsPerDay)
	return days/DaysPerWeek + 1, true
}

// IsLate reports whether a completion dated completedOn predates the
// checkpoint. A nil checkpoint never flags anything, and a completion on
// the checkpoint day itself is not late.
func IsLate(completedOn time.Time, checkpoint *time.Time) bool {
	if checkpoint == nil {
		return false
	}
	return Day(completedOn).Before(Day(*checkpoint))
}
