// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/evmodels/plmc-harness/internal/issue"
)

// ServiceError is an error the CLI layer renders before exiting: a styled
// message followed by the issue catalog entry, if any.
// Always create via newServiceError.
type ServiceError struct {
	// Err must not be nil.
	Err           error
	IssueID       issue.Id
	StyledMessage string
}

func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message, then the catalog entry
// rendered for stylePath ("dark", "light", "notty").
func renderServiceError(stderr io.Writer, svcErr *ServiceError, stylePath string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if entry := issue.Get(svcErr.IssueID); entry != nil {
		rendered, err := entry.Render(stylePath)
		if err != nil {
			fmt.Fprintf(stderr, "%s failed to render help: %v\n", WarningStyle.Render("!"), err)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
