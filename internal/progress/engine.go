// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package progress

import (
	"fmt"
	"sort"
	"time"
)

// Verdict is the outcome of a week.
type Verdict int

const (
	// VerdictPending means the week has not ended and the goal is not yet met.
	VerdictPending Verdict = iota
	// VerdictMet means the week's entries satisfy the goal.
	VerdictMet
	// VerdictUnmet means the week ended without satisfying the goal.
	VerdictUnmet
)

func (v Verdict) String() string {
	switch v {
	case VerdictMet:
		return "met"
	case VerdictUnmet:
		return "unmet"
	default:
		return "pending"
	}
}

// MarshalText renders the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a verdict name.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*v = VerdictPending
	case "met":
		*v = VerdictMet
	case "unmet":
		*v = VerdictUnmet
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// Summary is the adherence of one week.
type Summary struct {
	Window
	Entries       []Entry
	Count         int
	TotalDuration int // minutes
	// ShortEntries counts entries below the goal's activity duration.
	ShortEntries int
	Verdict      Verdict
	// Future is set when the week starts after today.
	Future bool
}

// Engine buckets entries into weeks and applies a verdict policy.
type Engine struct {
	policy Policy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of today.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. An empty policy means PolicyCountAndDuration.
func NewEngine(policy Policy, opts ...Option) *Engine {
	if policy == "" {
		policy = PolicyCountAndDuration
	}
	e := &Engine{policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the verdict policy in use.
func (e *Engine) Policy() Policy { return e.policy }

// Week summarizes the given 1-based week. Entries may arrive in any order;
// the summary lists them by date, then ID.
func (e *Engine) Week(goal Goal, entries []Entry, anchor time.Time, week int) (*Summary, error) {
	w, err := WeekWindow(anchor, week)
	if err != nil {
		return nil, err
	}
	return e.summarize(goal, entries, w), nil
}

// Weeks summarizes every week from 1 through the week containing today.
// It returns nothing when today precedes the anchor.
func (e *Engine) Weeks(goal Goal, entries []Entry, anchor time.Time) []Summary {
	current, ok := WeekOf(anchor, e.now())
	if !ok {
		return nil
	}
	out := make([]Summary, 0, current)
	for week := 1; week <= current; week++ {
		w, _ := WeekWindow(anchor, week)
		out = append(out, *e.summarize(goal, entries, w))
	}
	return out
}

func (e *Engine) summarize(goal Goal, entries []Entry, w Window) *Summary {
	today := Day(e.now())
	s := &Summary{Window: w, Entries: []Entry{}, Future: w.Start.After(today)}

	for _, entry := range entries {
		if !w.Contains(entry.CompletedOn) {
			continue
		}
		s.Entries = append(s.Entries, entry)
		s.TotalDuration += entry.Duration
		if entry.Duration < goal.ActivityDuration {
			s.ShortEntries++
		}
	}
	s.Count = len(s.Entries)

	sort.SliceStable(s.Entries, func(i, j int) bool {
		a, b := Day(s.Entries[i].CompletedOn), Day(s.Entries[j].CompletedOn)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return s.Entries[i].ID < s.Entries[j].ID
	})

	switch {
	case e.policy.Met(goal, s.Entries):
		s.Verdict = VerdictMet
	case today.Before(w.End):
		s.Verdict = VerdictPending
	default:
		s.Verdict = VerdictUnmet
	}
	return s
}
