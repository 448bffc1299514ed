// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
)

// DefaultCookieName names the session cookie when Config leaves it empty.
const DefaultCookieName = "resolute_session"

// Config holds the router's dependencies.
type Config struct {
	Gatekeeper  *auth.Gatekeeper
	Accounts    *auth.Service
	Resolutions *resolution.Service
	// Policy is reported on the progress page.
	Policy   progress.Policy
	Renderer Renderer        // optional, defaults to JSONRenderer
	Observer RequestObserver // optional
	// Throttle limits credential attempts per session; nil disables it.
	Throttle *auth.LoginThrottle

	CookieName   string
	SecureCookie bool
	SessionTTL   time.Duration
}

type handlers struct {
	gatekeeper   *auth.Gatekeeper
	accounts     *auth.Service
	resolutions  *resolution.Service
	policy       progress.Policy
	renderer     Renderer
	throttle     *auth.LoginThrottle
	cookieName   string
	secureCookie bool
	sessionTTL   time.Duration
}

// NewRouter builds the application handler.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Gatekeeper == nil || cfg.Accounts == nil || cfg.Resolutions == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("gatekeeper, accounts and resolutions are required")
	}
	h := &handlers{
		gatekeeper:   cfg.Gatekeeper,
		accounts:     cfg.Accounts,
		resolutions:  cfg.Resolutions,
		policy:       cfg.Policy,
		renderer:     cfg.Renderer,
		throttle:     cfg.Throttle,
		cookieName:   cfg.CookieName,
		secureCookie: cfg.SecureCookie,
		sessionTTL:   cfg.SessionTTL,
	}
	if h.renderer == nil {
		h.renderer = JSONRenderer{}
	}
	if h.cookieName == "" {
		h.cookieName = DefaultCookieName
	}
	if h.sessionTTL <= 0 {
		h.sessionTTL = auth.DefaultSessionTTL
	}
	if h.policy == "" {
		h.policy = progress.PolicyCountAndDuration
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(cfg.Observer))
	r.Use(middleware.Recoverer)
	r.Use(limitBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "Page not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Group(func(r chi.Router) {
		r.Use(h.session)

		r.Get("/", h.home)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", h.page(ViewLogin))
			r.Post("/login", h.login)
			r.Get("/register", h.page(ViewRegister))
			r.Post("/register", h.register)
			r.Get("/logout", h.logout)
			r.Post("/unauthenticated", h.unauthenticated)
		})

		r.Get("/profile/registered", h.page(ViewProfile))

		r.Group(func(r chi.Router) {
			r.Use(h.guard)

			r.Get("/profile", h.showProfile)
			r.Get("/profile/create", h.createProfile)
			r.Get("/profile/create/finish", h.finishProfile)
			r.Get("/profile/{profile_id}/progress/{week_num}", h.weekProgress)

			r.Get("/resolutions/add", h.page(ViewResolutionsAdd))
			r.Post("/resolutions/add", h.addResolution)
			r.Get("/resolutions/update", h.updateResolutions)
			r.Get("/resolutions/update/finish", h.finishUpdate)
			r.Post("/resolutions/{id}/completion", h.recordCompletion)
		})
	})

	return r, nil
}
