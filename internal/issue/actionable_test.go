// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "run plmc"},
			expected: "failed to run plmc",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "read alignment", Resource: "/data/a.a2m"},
			expected: "failed to read alignment: /data/a.a2m",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "read alignment",
				Resource:  "/data/a.a2m",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to read alignment: /data/a.a2m: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("binary missing")
	err := NewErrorContext().
		WithOperation("locate plmc binary").
		WithResource("/opt/plmc/bin/plmc").
		Wrap(sentinel).
		BuildError()
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped sentinel")
	}

	if WrapWithOperation(nil, "noop") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 1")
	err := NewErrorContext().
		WithOperation("run plmc").
		WithResource("/out/uniref100.EC").
		WithSuggestion("Inspect the plmc log").
		WithSuggestion("Check the focus sequence").
		Wrap(errors.Join(errors.New("plmc failed"), inner)).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "• Inspect the plmc log") || !strings.Contains(plain, "• Check the focus sequence") {
		t.Errorf("Format(false) missing suggestions:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain:") {
		t.Errorf("Format(false) should not include the error chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "2. plmc failed") {
		t.Errorf("Format(true) missing error chain:\n%s", verbose)
	}
	if !strings.Contains(verbose, "3. exit status 1") {
		t.Errorf("Format(true) should follow every joined cause:\n%s", verbose)
	}
}

func TestErrorContext_BuildRequiresOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}
	ae := NewErrorContext().WithOperation("load configuration").Build()
	if ae == nil || ae.HasSuggestions() {
		t.Errorf("Build() = %+v, want error without suggestions", ae)
	}

	ctx := NewErrorContext().WithOperation("serve tools").WithSuggestion("Pick another port")
	first := ctx.Build()
	ctx.WithSuggestion("Set a token")
	if len(first.Suggestions) != 1 {
		t.Errorf("built error shares suggestions with its builder: %v", first.Suggestions)
	}
}
