// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package web serves the HTTP interface: the auth endpoints, the profile
// wizard, resolution and completion forms and the weekly progress view.
//
// Every request carries a RequestContext holding its session and, once the
// gatekeeper has run, its principal. Guarded routes that end up anonymous
// or failed go through the failure protocol: remember the attempted path,
// flash the reason and redirect to the login form. Page rendering is
// delegated to a Renderer; the default one emits JSON view models.
package web
