// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evmodels/plmc-harness/pkg/types"
)

var (
	// ErrValidation is the sentinel error wrapped by ValidationError.
	ErrValidation = errors.New("invalid analysis request")
	// ErrExecution is the sentinel error wrapped by ExecutionError.
	ErrExecution = errors.New("plmc execution failed")
	// ErrTimeout is the sentinel error wrapped by TimeoutError.
	ErrTimeout = errors.New("plmc timed out")
	// ErrEnvironment is the sentinel error wrapped by EnvironmentError.
	ErrEnvironment = errors.New("plmc environment unavailable")
)

type (
	// ValidationError names the first request field that failed validation.
	// No process has been spawned when it is returned.
	ValidationError struct {
		Field  string
		Value  string
		Reason string
	}

	// ExecutionError reports a run that started but did not succeed: a
	// non-zero exit, missing or empty outputs, or cancellation (Cause is then
	// context.Canceled).
	ExecutionError struct {
		Command  string
		ExitCode types.ExitCode
		Stdout   string
		Stderr   string
		// Missing lists expected output files that are absent or empty.
		Missing []string
		Cause   error
	}

	// TimeoutError reports a run killed because its deadline passed.
	TimeoutError struct {
		Command string
		Timeout time.Duration
		Elapsed time.Duration
		Stdout  string
		Stderr  string
	}

	// EnvironmentError reports a missing or unusable executable.
	EnvironmentError struct {
		Tool     string
		Searched []string
		Cause    error
	}
)

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	var b strings.Builder
	switch {
	case e.Cause != nil:
		fmt.Fprintf(&b, "plmc interrupted: %v", e.Cause)
	case !e.ExitCode.IsSuccess():
		fmt.Fprintf(&b, "plmc exited with code %s", e.ExitCode)
	default:
		b.WriteString("plmc exited successfully but produced no usable output")
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing or empty: %s)", strings.Join(e.Missing, ", "))
	}
	if tail := lastLine(e.Stderr); tail != "" {
		fmt.Fprintf(&b, ": %s", tail)
	}
	return b.String()
}

// Unwrap exposes both ErrExecution and the underlying cause.
func (e *ExecutionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrExecution}
	}
	return []error{ErrExecution, e.Cause}
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("plmc exceeded its %s time limit and was killed", e.Timeout)
	}
	return fmt.Sprintf("plmc deadline passed after %s and was killed", e.Elapsed.Round(time.Millisecond))
}

// Unwrap returns ErrTimeout for errors.Is() compatibility.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Error implements the error interface for EnvironmentError.
func (e *EnvironmentError) Error() string {
	msg := fmt.Sprintf("%s is not available", e.Tool)
	if len(e.Searched) > 0 {
		msg += fmt.Sprintf(" (searched %s)", strings.Join(e.Searched, ", "))
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both ErrEnvironment and the underlying cause.
func (e *EnvironmentError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrEnvironment}
	}
	return []error{ErrEnvironment, e.Cause}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
