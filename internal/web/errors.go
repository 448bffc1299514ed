// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/pkg/errutil"
)

// User-facing messages.
const (
	MsgLoggedIn          = "Successfully logged in"
	MsgLoggedOut         = "Successfully logged out"
	MsgRegistered        = "Successfully created a profile"
	MsgResolutionCreated = "Successfully created a resolution"
	MsgCompletionSaved   = "Successfully submitted"
	MsgLateCompletion    = "The completion date is before your last confession - it means you either forgot about it or are trying to cheat! :("
	MsgProfileRequired   = "Create your profile first"
	MsgTooManyAttempts   = "Too many login attempts, please wait before trying again"
	MsgUsernameTaken     = "That username is already taken"
	MsgInvalidUsername   = "Usernames are 3 to 30 characters, start with a letter and use only letters, numbers and underscores"
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgInvalidPassword   = "Passwords must be at least 8 characters"
	MsgInvalidForm       = "The submitted form is invalid"
	MsgInvalidWeek       = "The week number must be a positive integer"
	MsgNotFound          = "Page not found"
	MsgServerError       = "Something went wrong"
)

// isClientError reports whether err is the caller's fault and can be fixed
// by resubmitting.
func isClientError(err error) bool {
	return errors.Is(err, resolution.ErrValidation) ||
		errors.Is(err, auth.ErrInvalidInput) ||
		errors.Is(err, auth.ErrUsernameTaken)
}

// userMessage picks the flash text for a client error.
func userMessage(err error) string {
	var verr *resolution.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, auth.ErrUsernameTaken) {
		return MsgUsernameTaken
	}
	switch errutil.Code(err) {
	case "AUTH_INVALID_USERNAME":
		return MsgInvalidUsername
	case "AUTH_INVALID_EMAIL":
		return MsgInvalidEmail
	case "AUTH_INVALID_PASSWORD":
		return MsgInvalidPassword
	}
	return MsgInvalidForm
}

// fail maps a handler error onto a response. Client errors flash and
// redirect to back; a missing profile sends the user to the profile
// wizard; unknown entities are 404; everything else is logged and 500.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case isClientError(err):
		if back == "" {
			h.renderError(w, r, http.StatusBadRequest, userMessage(err))
			return
		}
		h.flashRedirect(w, r, auth.FlashError, userMessage(err), back)
	case errors.Is(err, resolution.ErrProfileRequired):
		h.flashRedirect(w, r, auth.FlashWarning, MsgProfileRequired, "/profile/create")
	case errors.Is(err, resolution.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, MsgNotFound)
	default:
		h.serverError(w, r, err)
	}
}

func (h *handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogErrorContext(r.Context(), slog.Default(), "request failed", err)
	h.renderError(w, r, http.StatusInternalServerError, MsgServerError)
}

func (h *handlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, ViewError, ErrorView{Status: status, Message: message})
}
