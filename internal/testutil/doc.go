// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Besides the Must* helpers it writes shell stubs that stand in for plmc and
// reformat.pl, so that process tests never need the real tools.
package testutil
