// SPDX-License-Identifier: MPL-2.0

// Package server exposes the tool registry over HTTP.
//
// Routes:
//
//	GET  /health           liveness probe, never authenticated
//	GET  /v1/tools         tool definitions with JSON-schema inputs
//	POST /v1/tools/{name}  invoke a tool; the body is its JSON arguments
//
// When a token is configured every /v1 route requires
// "Authorization: Bearer <token>".
package server
