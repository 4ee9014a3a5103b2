// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/evmodels/plmc-harness/internal/alignment"
	"github.com/evmodels/plmc-harness/internal/config"
	"github.com/evmodels/plmc-harness/internal/issue"
	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/tools"
	"github.com/evmodels/plmc-harness/pkg/types"
)

// operationServe is the ActionableError operation used by the serve command.
const operationServe = "start tool server"

// classifyError maps a failure to an issue catalog ID, an exit code and a
// styled message for CLI rendering.
func classifyError(err error, verbose bool) (issueID issue.Id, code types.ExitCode, styledMsg string) {
	code = tools.ExitCodeFor(tools.Classify(err))

	var (
		valErr  *plmc.ValidationError
		envErr  *plmc.EnvironmentError
		execErr *plmc.ExecutionError
		ae      *issue.ActionableError
	)
	switch {
	case errors.As(err, &valErr):
		issueID = issue.InvalidRequestId
		if isInputField(valErr.Field) {
			issueID = issue.AlignmentNotFoundId
		}
	case errors.Is(err, alignment.ErrEmptyAlignment), errors.Is(err, alignment.ErrRaggedAlignment):
		issueID = issue.InvalidRequestId
		code = tools.ExitUsage
	case errors.Is(err, os.ErrPermission):
		issueID = issue.PermissionDeniedId
	case errors.As(err, &envErr):
		issueID = issue.PlmcNotFoundId
		if envErr.Tool == alignment.ReformatScript {
			issueID = issue.ReformatNotFoundId
		}
	case errors.Is(err, plmc.ErrTimeout):
		issueID = issue.PlmcTimeoutId
	case errors.As(err, &execErr):
		issueID = issue.PlmcFailedId
		if execErr.Cause == nil && execErr.ExitCode.IsSuccess() && len(execErr.Missing) > 0 {
			issueID = issue.DegenerateOutputId
		}
	case errors.Is(err, config.ErrInvalidConfig):
		issueID = issue.ConfigLoadFailedId
		code = tools.ExitUsage
	case errors.As(err, &ae) && ae.Operation == operationServe:
		issueID = issue.ServerStartFailedId
	case errors.As(err, &ae) && (ae.Operation == config.OperationLoad || ae.Operation == config.OperationValidate):
		issueID = issue.ConfigLoadFailedId
		code = tools.ExitUsage
	}

	return issueID, code, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

func isInputField(field string) bool {
	switch field {
	case "alignment_path", "a3m_file_path", "input":
		return true
	default:
		return false
	}
}

// formatErrorForDisplay uses ActionableError.Format when available so that
// suggestions are shown; verbose adds the error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
