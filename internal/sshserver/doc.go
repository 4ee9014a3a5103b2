// SPDX-License-Identifier: MPL-2.0

// Package sshserver exposes the tool registry over SSH using Wish.
//
// A session runs one tool: "ssh -p 2222 plmc@host <tool> '<json>'". Without a
// JSON argument the arguments are read from stdin; without a command the
// tool definitions are printed. Clients authenticate with the configured
// token as their password; public keys are rejected.
package sshserver
