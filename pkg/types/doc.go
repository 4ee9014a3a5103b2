// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared across plmc-harness packages:
// process exit codes, filesystem paths handed across process and network
// boundaries, and server listen ports.
package types
