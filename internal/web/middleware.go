// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package web

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/resolute/resolute/internal/auth"
)

const (
	tracerName   = "github.com/resolute/resolute/internal/web"
	maxFormBytes = 1 << 20
)

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// instrument wraps each request in a server span, records metrics under the
// matched route pattern and logs the outcome at debug level.
func instrument(observer RequestObserver) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if observer != nil {
				observer.ObserveRequest(route, r.Method, status, elapsed)
			}
			slog.DebugContext(ctx, "request served",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", elapsed)
		})
	}
}

// limitBody caps form bodies.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// session loads or starts the session named by the cookie, refreshes the
// cookie and resolves the principal into a RequestContext.
func (h *handlers) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var token string
		if c, err := r.Cookie(h.cookieName); err == nil {
			token = c.Value
		}
		sess, token, err := h.gatekeeper.Manager().Start(ctx, token)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		h.setSessionCookie(w, token)

		decision, err := h.gatekeeper.Resolve(ctx, sess)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		rc := &RequestContext{Session: sess, User: decision.User, State: decision.State}
		next.ServeHTTP(w, r.WithContext(WithRequestContext(ctx, rc)))
	})
}

// setSessionCookie hands token to the client, replacing a session cookie
// already queued on this response.
func (h *handlers) setSessionCookie(w http.ResponseWriter, token string) {
	prefix := h.cookieName + "="
	queued := w.Header().Values("Set-Cookie")
	w.Header().Del("Set-Cookie")
	for _, c := range queued {
		if !strings.HasPrefix(c, prefix) {
			w.Header().Add("Set-Cookie", c)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// guard requires a principal. An anonymous request runs the strategies
// against its posted credentials; if that does not authenticate it, the
// failure protocol takes over. A login made this way is a login like any
// other: it consumes the remembered return-to path, and the request goes on
// to its own target instead.
func (h *handlers) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())
		if rc.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}

		creds := postedCredentials(r)
		if len(creds) > 0 && h.throttled(w, r) {
			return
		}
		decision, err := h.gatekeeper.Authenticate(r.Context(), rc.Session, creds, true)
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
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the caller's address as resolved by middleware.RealIP,
// without the port net/http appends for direct connections.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// postedCredentials collects body form fields for the strategies. Query
// parameters are ignored so passwords never travel in URLs.
func postedCredentials(r *http.Request) auth.Credentials {
	creds := auth.Credentials{}
	if r.Method != http.MethodPost {
		return creds
	}
	if err := r.ParseForm(); err != nil {
		return creds
	}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			creds[key] = values[0]
		}
	}
	return creds
}

// attemptedPath is the path worth returning to after login. Only safe
// methods are replayable.
func attemptedPath(r *http.Request) string {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return ""
	}
	return r.URL.RequestURI()
}
