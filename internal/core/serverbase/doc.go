// SPDX-License-Identifier: MPL-2.0

// Package serverbase is the lifecycle state machine shared by the HTTP and SSH
// tool servers: listen, serve in a tracked goroutine, report async errors and
// shut down once.
package serverbase
