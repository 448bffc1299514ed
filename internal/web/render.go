// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/resolute/resolute/internal/auth"
)

// View names handed to the Renderer.
const (
	ViewHome           = "index"
	ViewHomeLogged     = "index_logged"
	ViewLogin          = "auth/login"
	ViewRegister       = "auth/register"
	ViewProfile        = "profile/profile"
	ViewProfileCreate  = "profile/create"
	ViewResolutionsAdd = "resolutions/add"
	ViewResolutionsUpd = "resolutions/update"
	ViewProgressWeek   = "profile/progress/single_week"
	ViewError          = "error"
)

// View is what a page needs to render.
type View struct {
	Name    string       `json:"view"`
	Flashes []auth.Flash `json:"flashes"`
	User    *UserView    `json:"user,omitempty"`
	Data    any          `json:"data,omitempty"`
}

// Renderer turns a View into a response body.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, view View) error
}

// JSONRenderer renders views as JSON documents.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(w http.ResponseWriter, _ *http.Request, status int, view View) error {
	if view.Flashes == nil {
		view.Flashes = []auth.Flash{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(view) //nolint:wrapcheck // response already committed
}
