// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

// Package progress computes weekly adherence for a goal.
//
// Weeks are 7-day windows counted from an anchor date: week n covers
// [anchor+7(n-1), anchor+7n). All dates are calendar days in UTC; callers
// pass values through Day before comparing them. The package does no I/O
// and holds no shared state, so it is safe to call from any goroutine.
package progress
