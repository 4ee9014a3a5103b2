// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestErrorSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		others   []error
	}{
		{"validation", &ValidationError{Field: "theta", Value: "2", Reason: "out of range"}, ErrValidation, []error{ErrExecution, ErrTimeout, ErrEnvironment}},
		{"execution", &ExecutionError{ExitCode: 1}, ErrExecution, []error{ErrValidation, ErrTimeout, context.Canceled}},
		{"cancelled", &ExecutionError{Cause: context.Canceled}, context.Canceled, []error{ErrTimeout}},
		{"timeout", &TimeoutError{Timeout: time.Second}, ErrTimeout, []error{ErrExecution}},
		{"environment", &EnvironmentError{Tool: "plmc"}, ErrEnvironment, []error{ErrExecution}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			for _, other := range tt.others {
				if errors.Is(tt.err, other) {
					t.Errorf("errors.Is(%v, %v) = true", tt.err, other)
				}
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Field: "theta", Value: "1.5", Reason: "must be within [0, 1]"}
	if got, want := err.Error(), `invalid theta "1.5": must be within [0, 1]`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = &ValidationError{Field: "focus_sequence", Reason: "must not be empty"}
	if got, want := err.Error(), "invalid focus_sequence: must not be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
