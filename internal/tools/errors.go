// SPDX-License-Identifier: MPL-2.0

package tools

import (
	"errors"

	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/pkg/types"
)

const (
	// KindValidation marks a rejected request; no process was spawned.
	KindValidation ErrorKind = "validation_error"
	// KindUnknownTool marks a call to an unregistered tool.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindEnvironment marks a missing or unusable executable.
	KindEnvironment ErrorKind = "environment_error"
	// KindTimeout marks a run killed at its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindExecution marks a run that started but did not succeed.
	KindExecution ErrorKind = "execution_error"
	// KindInternal marks anything else.
	KindInternal ErrorKind = "internal_error"
)

const (
	// ExitExecution is returned when plmc or reformat.pl failed.
	ExitExecution types.ExitCode = 1
	// ExitUsage is returned for invalid arguments.
	ExitUsage types.ExitCode = 2
	// ExitUnavailable is returned when plmc or reformat.pl is missing.
	ExitUnavailable types.ExitCode = 69
	// ExitInternal is returned for unclassified failures.
	ExitInternal types.ExitCode = 70
	// ExitTimeout matches timeout(1).
	ExitTimeout types.ExitCode = 124
	// ExitUnknownTool matches a shell's command-not-found.
	ExitUnknownTool types.ExitCode = 127
)

type (
	// ErrorKind classifies a tool failure for remote callers.
	ErrorKind string

	// ErrorResponse is the JSON body returned for a failed tool call.
	ErrorResponse struct {
		Error    string    `json:"error"`
		Kind     ErrorKind `json:"kind"`
		Field    string    `json:"field,omitempty"`
		ExitCode *int      `json:"exit_code,omitempty"`
		Missing  []string  `json:"missing,omitempty"`
		LogText  string    `json:"log_text,omitempty"`
	}
)

// Classify maps err onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, plmc.ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, plmc.ErrEnvironment):
		return KindEnvironment
	case errors.Is(err, plmc.ErrTimeout):
		return KindTimeout
	case errors.Is(err, plmc.ErrExecution):
		return KindExecution
	default:
		return KindInternal
	}
}

// ExitCodeFor maps an error kind onto a process or session exit status.
func ExitCodeFor(kind ErrorKind) types.ExitCode {
	switch kind {
	case KindValidation:
		return ExitUsage
	case KindUnknownTool:
		return ExitUnknownTool
	case KindEnvironment:
		return ExitUnavailable
	case KindTimeout:
		return ExitTimeout
	case KindExecution:
		return ExitExecution
	default:
		return ExitInternal
	}
}

// NewErrorResponse builds the error body for err, carrying the diagnostics
// attached to the typed plmc errors.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Kind: Classify(err)}

	var (
		valErr     *plmc.ValidationError
		execErr    *plmc.ExecutionError
		timeoutErr *plmc.TimeoutError
	)
	switch {
	case errors.As(err, &valErr):
		resp.Field = valErr.Field
	case errors.As(err, &execErr):
		if execErr.Cause == nil {
			code := int(execErr.ExitCode)
			resp.ExitCode = &code
		}
		resp.Missing = execErr.Missing
		resp.LogText = joinLog(execErr.Stdout, execErr.Stderr)
	case errors.As(err, &timeoutErr):
		resp.LogText = joinLog(timeoutErr.Stdout, timeoutErr.Stderr)
	}
	return resp
}

func joinLog(stdout, stderr string) string {
	return (&plmc.Result{Stdout: stdout, Stderr: stderr}).LogText()
}
