// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
)

// render hands the view to the renderer along with the session's pending
// flashes, which are consumed.
func (h *handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	view := View{Name: name, Data: data}
	if rc := FromContext(r.Context()); rc != nil {
		view.User = newUserView(rc.User)
		flashes, err := h.gatekeeper.Manager().TakeFlashes(r.Context(), rc.Session)
		if err != nil {
			slog.WarnContext(r.Context(), "flash retrieval failed", "error", err)
		}
		view.Flashes = flashes
	}
	if err := h.renderer.Render(w, r, status, view); err != nil {
		slog.WarnContext(r.Context(), "render failed", "view", name, "error", err)
	}
}

func (h *handlers) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, nil)
	}
}

// redirect uses 303 after a form post so the browser follows with GET.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	status := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, path, status)
}

func (h *handlers) flashRedirect(w http.ResponseWriter, r *http.Request, kind auth.FlashKind, message, path string) {
	if rc := FromContext(r.Context()); rc != nil {
		if err := h.gatekeeper.Manager().Flash(r.Context(), rc.Session, kind, message); err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	redirect(w, r, path)
}

// failureProtocol remembers the attempted path, flashes the reason and
// sends the user to the login form.
func (h *handlers) failureProtocol(w http.ResponseWriter, r *http.Request, attempted, reason string) {
	rc := FromContext(r.Context())
	target, err := h.gatekeeper.Fail(r.Context(), rc.Session, attempted, reason)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// throttled spends one credential attempt for the session. When none is
// left it answers the request and reports true.
func (h *handlers) throttled(w http.ResponseWriter, r *http.Request) bool {
	if h.throttle == nil {
		return false
	}
	rc := FromContext(r.Context())
	allowed, wait := h.throttle.AllowClient(rc.Session.ID, clientAddr(r))
	if allowed {
		return false
	}
	slog.WarnContext(r.Context(), "login attempts throttled",
		"session_id", rc.Session.ID.String(),
		"client", clientAddr(r),
		"retry_after", wait)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	h.flashRedirect(w, r, auth.FlashError, MsgTooManyAttempts, auth.LoginPath)
	return true
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	if FromContext(r.Context()).Authenticated() {
		h.render(w, r, http.StatusOK, ViewHomeLogged, nil)
		return
	}
	h.render(w, r, http.StatusOK, ViewHome, nil)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	if h.throttled(w, r) {
		return
	}
	decision, err := h.gatekeeper.Authenticate(r.Context(), rc.Session, postedCredentials(r), true)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	rc.State = decision.State
	if decision.State != auth.StateAuthenticated {
		h.failureProtocol(w, r, attemptedPath(r), decision.Reason)
		return
	}
	if decision.Token != "" {
		h.setSessionCookie(w, decision.Token)
	}
	rc.User = decision.User
	h.flashRedirect(w, r, auth.FlashSuccess, MsgLoggedIn, decision.Redirect())
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	_, err := h.accounts.Register(r.Context(),
		formValue(r, "username", "user[username]"),
		formValue(r, "email", "user[email]"),
		formValue(r, "password", "user[password]"))
	if err != nil {
		h.fail(w, r, err, "/auth/register")
		return
	}
	h.flashRedirect(w, r, auth.FlashSuccess, MsgRegistered, "/profile/registered")
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	cleared, err := h.gatekeeper.Logout(r.Context(), rc.Session)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	rc.User, rc.State = nil, auth.StateAnonymous
	if cleared {
		h.flashRedirect(w, r, auth.FlashSuccess, MsgLoggedOut, auth.DefaultPath)
		return
	}
	redirect(w, r, auth.DefaultPath)
}

// unauthenticated is the failure protocol as an endpoint, for callers that
// post the attempted path and message explicitly.
func (h *handlers) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	h.failureProtocol(w, r, r.PostFormValue("attempted_path"), r.PostFormValue("message"))
}

func (h *handlers) showProfile(w http.ResponseWriter, r *http.Request) {
	user := FromContext(r.Context()).User
	profile, err := h.resolutions.ProfileFor(r.Context(), user.ID)
	if errors.Is(err, resolution.ErrProfileRequired) {
		h.render(w, r, http.StatusOK, ViewProfile, nil)
		return
	}
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	list, err := h.resolutions.ListResolutions(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, ViewProfile, newProfileView(profile, list))
}

func (h *handlers) createProfile(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	profile, created, err := h.resolutions.EnsureProfile(r.Context(), rc.User.ID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if created {
		id := profile.ID
		rc.User.ProfileID = &id
	}
	list, err := h.resolutions.ListResolutions(r.Context(), rc.User.ID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, ViewProfileCreate, newProfileView(profile, list))
}

func (h *handlers) finishProfile(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/profile")
}

func (h *handlers) addResolution(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	frequency, err := formInt(r, "weekly_frequency")
	if err != nil {
		h.fail(w, r, err, "/resolutions/add")
		return
	}
	duration, err := formInt(r, "activity_duration")
	if err != nil {
		h.fail(w, r, err, "/resolutions/add")
		return
	}

	user := FromContext(r.Context()).User
	if _, err := h.resolutions.AddResolution(r.Context(), user.ID, r.PostFormValue("title"), frequency, duration); err != nil {
		h.fail(w, r, err, "/resolutions/add")
		return
	}
	h.flashRedirect(w, r, auth.FlashSuccess, MsgResolutionCreated, "/profile/create")
}

func (h *handlers) updateResolutions(w http.ResponseWriter, r *http.Request) {
	user := FromContext(r.Context()).User
	profile, err := h.resolutions.ProfileFor(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	list, err := h.resolutions.ListResolutions(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, ViewResolutionsUpd, newProfileView(profile, list))
}

func (h *handlers) finishUpdate(w http.ResponseWriter, r *http.Request) {
	user := FromContext(r.Context()).User
	if _, err := h.resolutions.ConfirmResolutions(r.Context(), user.ID); err != nil {
		h.fail(w, r, err, "")
		return
	}
	redirect(w, r, "/profile")
}

func (h *handlers) recordCompletion(w http.ResponseWriter, r *http.Request) {
	resolutionID, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, MsgNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	duration, err := formInt(r, "activity_duration")
	if err != nil {
		h.fail(w, r, err, "/resolutions/update")
		return
	}
	completedOn, err := progress.ParseDate(strings.TrimSpace(r.PostFormValue("completed_on")))
	if err != nil {
		h.fail(w, r, &resolution.ValidationError{Field: "completed_on", Message: "must be a date (YYYY-MM-DD)"}, "/resolutions/update")
		return
	}

	user := FromContext(r.Context()).User
	result, err := h.resolutions.RecordCompletion(r.Context(), user.ID, resolutionID, duration, completedOn)
	if err != nil {
		h.fail(w, r, err, "/resolutions/update")
		return
	}
	if result.Late {
		h.flashRedirect(w, r, auth.FlashWarning, MsgLateCompletion, "/resolutions/update")
		return
	}
	h.flashRedirect(w, r, auth.FlashSuccess, MsgCompletionSaved, "/resolutions/update")
}

func (h *handlers) weekProgress(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(chi.URLParam(r, "week_num"))
	if err != nil || week < 1 {
		h.renderError(w, r, http.StatusBadRequest, MsgInvalidWeek)
		return
	}
	profileID, err := ulid.Parse(chi.URLParam(r, "profile_id"))
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, MsgNotFound)
		return
	}

	user := FromContext(r.Context()).User
	report, err := h.resolutions.Progress(r.Context(), user.ID, profileID, week)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, ViewProgressWeek, newProgressView(report, h.policy))
}

func formValue(r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v := r.PostFormValue(k); v != "" {
			return v
		}
	}
	return ""
}

func formInt(r *http.Request, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(field)))
	if err != nil {
		return 0, &resolution.ValidationError{Field: field, Message: "must be a whole number"}
	}
	return n, nil
}
