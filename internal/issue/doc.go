// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError records what the harness was doing (operation), what it was
// touching (resource) and how the user can fix it (suggestions). The catalog in
// issue.go maps well-known failures (missing plmc binary, invalid request,
// timeouts) to Markdown guidance rendered with glamour.
package issue
