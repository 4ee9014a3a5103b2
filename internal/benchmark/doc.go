// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// These benchmarks cover the hot paths of the harness:
//   - request validation and plmc command construction
//   - A2M parsing, query-gap removal and writing
//   - CUE configuration loading
//   - End-to-end runs and tool calls against a stub plmc
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
