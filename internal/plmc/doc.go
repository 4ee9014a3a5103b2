// SPDX-License-Identifier: MPL-2.0

// Package plmc runs the plmc coevolution binary for one analysis request.
//
// A run is split into steps that can be tested on their own: Validate checks
// a Request without touching the process table, BuildCommand turns it into a
// deterministic argv, an Executor spawns exactly one process and captures its
// output, and Interpret decides success from the exit code and the files plmc
// was asked to write. Runner chains the steps and records a TOML manifest next
// to the outputs.
//
// Failures are reported as *ValidationError, *EnvironmentError,
// *ExecutionError or *TimeoutError, each matching its Err* sentinel with
// errors.Is.
package plmc
