// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package progress

import (
	"time"

	"github.com/samber/oops"
)

// Goal is the weekly target of a resolution.
type Goal struct {
	WeeklyFrequency  int // occurrences per week
	ActivityDuration int // minutes per occurrence
}

// Entry is one logged completion.
type Entry struct {
	ID          string
	CompletedOn time.Time
	Duration    int // minutes
}

// Policy decides whether a week's entries satisfy a goal.
type Policy string

const (
	// PolicyCountAndDuration requires at least WeeklyFrequency entries, each
	// lasting at least ActivityDuration minutes.
	PolicyCountAndDuration Policy = "count_and_duration"
	// PolicyCountOnly requires at least WeeklyFrequency entries of any length.
	PolicyCountOnly Policy = "count_only"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyCountAndDuration, PolicyCountOnly:
		return p, nil
	default:
		return "", oops.Code("PROGRESS_UNKNOWN_POLICY").With("policy", s).
			Errorf("unknown verdict policy %q (want %s or %s)", s, PolicyCountAndDuration, PolicyCountOnly)
	}
}

// Met applies the policy to the entries of a single week.
func (p Policy) Met(goal Goal, entries []Entry) bool {
	if len(entries) < goal.WeeklyFrequency {
		return false
	}
	if p == PolicyCountOnly {
		return true
	}
	for _, e := range entries {
		if e.Duration < goal.ActivityDuration {
			return false
		}
	}
	return true
}
