// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/web"
)

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(w http.ResponseWriter, r *http.Request, status int, view web.View) error {
	args := m.Called(r.URL.Path, status, view)
	w.WriteHeader(status)
	return args.Error(0)
}

func TestJSONRenderer(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := web.JSONRenderer{}.Render(rec, req, http.StatusTeapot, web.View{
		Name: web.ViewError,
		Data: web.ErrorView{Status: http.StatusTeapot, Message: "short and stout"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["view"])
	assert.Equal(t, []any{}, body["flashes"])
	assert.NotContains(t, body, "user")
	assert.Equal(t, map[string]any{"status": float64(http.StatusTeapot), "message": "short and stout"}, body["data"])
}

func TestRouter_UsesConfiguredRenderer(t *testing.T) {
	renderer := &mockRenderer{}
	a := newApp(t, func(o *options) { o.renderer = renderer })
	a.addUser(t, "alice", "password1")
	b := a.browser(t)

	renderer.On("Render", "/auth/login", http.StatusOK, mock.MatchedBy(func(v web.View) bool {
		return v.Name == web.ViewLogin && v.User == nil &&
			assert.ObjectsAreEqual(flash(auth.FlashError, auth.MsgLoginRequired), v.Flashes)
	})).Return(nil).Once()
	renderer.On("Render", "/", http.StatusOK, mock.MatchedBy(func(v web.View) bool {
		return v.Name == web.ViewHomeLogged && v.User != nil && v.User.Username == "alice"
	})).Return(nil).Once()

	b.get("/profile")
	b.get("/auth/login")
	b.login("alice", "password1")
	b.get("/")

	renderer.AssertExpectations(t)
}

func TestRouter_RenderErrorIsNotFatal(t *testing.T) {
	renderer := &mockRenderer{}
	a := newApp(t, func(o *options) { o.renderer = renderer })
	b := a.browser(t)

	renderer.On("Render", "/", http.StatusOK, mock.Anything).Return(assert.AnError)

	assert.Equal(t, http.StatusOK, b.get("/").status)
	renderer.AssertNumberOfCalls(t, "Render", 1)
}
