// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package resolution manages profiles, the weekly resolutions they own and
// the completions logged against them.
//
// Profiles are created at most once per user. A profile carries a
// checkpoint date (last_resolutions_update) that the user sets when they
// confirm their resolution set; completions dated before it are flagged as
// late. Weekly progress is computed by the progress package, anchored on the
// profile's creation date.
package resolution
