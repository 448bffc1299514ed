// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
)

// UserView is the signed-in user as shown on pages.
type UserView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	ProfileID string `json:"profile_id,omitempty"`
}

func newUserView(u *auth.User) *UserView {
	if u == nil {
		return nil
	}
	v := &UserView{ID: u.ID.String(), Username: u.Username, Email: u.Email}
	if u.ProfileID != nil {
		v.ProfileID = u.ProfileID.String()
	}
	return v
}

// ProfileView is a profile with its resolutions.
type ProfileView struct {
	ID                    string           `json:"id"`
	CreatedOn             string           `json:"created_on"`
	LastResolutionsUpdate string           `json:"last_resolutions_update,omitempty"`
	Resolutions           []ResolutionView `json:"resolutions"`
}

func newProfileView(p *resolution.Profile, resolutions []*resolution.Resolution) *ProfileView {
	if p == nil {
		return nil
	}
	v := &ProfileView{
		ID:          p.ID.String(),
		CreatedOn:   p.CreatedOn.Format(progress.DateLayout),
		Resolutions: make([]ResolutionView, 0, len(resolutions)),
	}
	if p.LastResolutionsUpdate != nil {
		v.LastResolutionsUpdate = p.LastResolutionsUpdate.Format(progress.DateLayout)
	}
	for _, r := range resolutions {
		v.Resolutions = append(v.Resolutions, newResolutionView(r))
	}
	return v
}

// ResolutionView is one resolution.
type ResolutionView struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	WeeklyFrequency  int    `json:"weekly_frequency"`
	ActivityDuration int    `json:"activity_duration"`
}

func newResolutionView(r *resolution.Resolution) ResolutionView {
	return ResolutionView{
		ID:               r.ID.String(),
		Title:            r.Title,
		WeeklyFrequency:  r.WeeklyFrequency,
		ActivityDuration: r.ActivityDuration,
	}
}

// CompletionView is one completion inside a week.
type CompletionView struct {
	ID               string `json:"id"`
	CompletedOn      string `json:"completed_on"`
	ActivityDuration int    `json:"activity_duration"`
	Late             bool   `json:"late"`
}

// WeekResolutionView is one resolution's adherence in the requested week.
type WeekResolutionView struct {
	Resolution    ResolutionView   `json:"resolution"`
	Completions   []CompletionView `json:"completions"`
	Count         int              `json:"count"`
	TotalDuration int              `json:"total_duration"`
	ShortEntries  int              `json:"short_entries"`
	Verdict       progress.Verdict `json:"verdict"`
}

// ProgressView is the single-week progress page.
type ProgressView struct {
	ProfileID   string               `json:"profile_id"`
	Week        int                  `json:"week_num"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	Future      bool                 `json:"future"`
	Policy      progress.Policy      `json:"policy"`
	Resolutions []WeekResolutionView `json:"resolutions"`
}

func newProgressView(report *resolution.Report, policy progress.Policy) *ProgressView {
	v := &ProgressView{
		ProfileID:   report.Profile.ID.String(),
		Week:        report.Window.Week,
		Start:       report.Window.Start.Format(progress.DateLayout),
		End:         report.Window.End.AddDate(0, 0, -1).Format(progress.DateLayout),
		Future:      report.Future,
		Policy:      policy,
		Resolutions: make([]WeekResolutionView, 0, len(report.Resolutions)),
	}
	for _, rp := range report.Resolutions {
		late := make(map[string]bool, len(rp.Late))
		for _, id := range rp.Late {
			late[id] = true
		}
		wv := WeekResolutionView{
			Resolution:    newResolutionView(rp.Resolution),
			Completions:   make([]CompletionView, 0, len(rp.Summary.Entries)),
			Count:         rp.Summary.Count,
			TotalDuration: rp.Summary.TotalDuration,
			ShortEntries:  rp.Summary.ShortEntries,
			Verdict:       rp.Summary.Verdict,
		}
		for _, e := range rp.Summary.Entries {
			wv.Completions = append(wv.Completions, CompletionView{
				ID:               e.ID,
				CompletedOn:      e.CompletedOn.Format(progress.DateLayout),
				ActivityDuration: e.Duration,
				Late:             late[e.ID],
			})
		}
		v.Resolutions = append(v.Resolutions, wv)
	}
	return v
}

// ErrorView is the body of an error page.
type ErrorView struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
