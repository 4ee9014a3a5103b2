// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for plmc-harness.
//
// This package implements the Cobra command hierarchy: running plmc on an
// alignment, converting A3M input, listing and calling tools, serving them
// over HTTP and SSH, and managing the configuration file.
package cmd
