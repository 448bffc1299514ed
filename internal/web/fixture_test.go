// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/auth/authtest"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/internal/resolution/resolutiontest"
	"github.com/resolute/resolute/internal/web"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(password, hash string) (bool, error) {
	return hash == "plain:"+password, nil
}

type observed struct {
	route, method string
	status        int
}

type fakeObserver struct {
	mu       sync.Mutex
	requests []observed
}

func (o *fakeObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, observed{route, method, status})
}

type app struct {
	users    *authtest.Users
	sessions *authtest.Sessions
	store    *resolutiontest.Store
	observer *fakeObserver
	server   *httptest.Server

	mu    sync.Mutex
	today time.Time
}

func (a *app) now() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.today.Add(12 * time.Hour)
}

// setToday moves the application clock.
func (a *app) setToday(day time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.today = day
}

type options struct {
	renderer web.Renderer
	throttle *auth.LoginThrottle
}

func newApp(t *testing.T, opts ...func(*options)) *app {
	t.Helper()
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &app{
		users:    authtest.NewUsers(),
		sessions: authtest.NewSessions(),
		store:    resolutiontest.New(),
		observer: &fakeObserver{},
		today:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	a.store.OnProfileCreated = a.users.SetProfile
	clock := a.now

	manager, err := auth.NewSessionManager(a.sessions, a.users, time.Hour)
	require.NoError(t, err)
	password, err := auth.NewPasswordStrategy(a.users, plainHasher{})
	require.NoError(t, err)
	registry, err := auth.NewRegistry(password)
	require.NoError(t, err)
	gate, err := auth.NewGatekeeper(manager, registry)
	require.NoError(t, err)
	accounts, err := auth.NewService(a.users, plainHasher{})
	require.NoError(t, err)

	engine := progress.NewEngine(progress.PolicyCountAndDuration, progress.WithClock(clock))
	svc, err := resolution.NewService(resolution.ServiceConfig{
		Transactor:  a.store,
		Profiles:    a.store.Profiles(),
		Resolutions: a.store.Resolutions(),
		Completions: a.store.Completions(),
		Engine:      engine,
		Clock:       clock,
	})
	require.NoError(t, err)

	handler, err := web.NewRouter(web.Config{
		Gatekeeper:  gate,
		Accounts:    accounts,
		Resolutions: svc,
		Policy:      engine.Policy(),
		Renderer:    o.renderer,
		Throttle:    o.throttle,
		Observer:    a.observer,
		SessionTTL:  time.Hour,
	})
	require.NoError(t, err)

	a.server = httptest.NewServer(handler)
	t.Cleanup(a.server.Close)
	return a
}

func (a *app) addUser(t *testing.T, username, password string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(username, username+"@example.com", "plain:"+password)
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), user))
	return user
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	// header is added to every request.
	header http.Header
}

func (a *app) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: a.server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	view     renderedView
}

type renderedView struct {
	Name    string          `json:"view"`
	Flashes []auth.Flash    `json:"flashes"`
	User    *web.UserView   `json:"user"`
	Data    json.RawMessage `json:"data"`
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	for k, vs := range b.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()

	out := response{status: resp.StatusCode, location: resp.Header.Get("Location"), header: resp.Header}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&out.view))
	}
	return out
}

func (b *browser) sessionCookie() string {
	b.t.Helper()
	u, err := url.Parse(b.base)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == web.DefaultCookieName {
			return c.Value
		}
	}
	return ""
}

func (b *browser) setSessionCookie(value string) {
	b.t.Helper()
	u, err := url.Parse(b.base)
	require.NoError(b.t, err)
	b.client.Jar.SetCookies(u, []*http.Cookie{{Name: web.DefaultCookieName, Value: value, Path: "/"}})
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login(username, password string) response {
	b.t.Helper()
	return b.post("/auth/login", url.Values{"username": {username}, "password": {password}})
}

func (b *browser) createProfile() web.ProfileView {
	b.t.Helper()
	resp := b.get("/profile/create")
	require.Equal(b.t, http.StatusOK, resp.status)
	var p web.ProfileView
	require.NoError(b.t, json.Unmarshal(resp.view.Data, &p))
	return p
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func flash(kind auth.FlashKind, message string) []auth.Flash {
	return []auth.Flash{{Kind: kind, Message: message}}
}
