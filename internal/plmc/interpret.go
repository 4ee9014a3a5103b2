// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"os"
	"time"

	"github.com/evmodels/plmc-harness/pkg/types"
)

// Result describes a successful run.
type Result struct {
	RunID         string
	ParamsPath    string
	CouplingsPath string
	ManifestPath  string
	Stdout        string
	Stderr        string
	ExitCode      types.ExitCode
	Command       string
	Duration      time.Duration
}

// Interpret turns an Execution into a Result. A run succeeds only when plmc
// exited 0 and both expected files exist as non-empty regular files; exit 0
// alone is not trusted.
func Interpret(ex *Execution, expected ExpectedOutputs) (*Result, error) {
	missing := missingOutputs(expected)
	if !ex.ExitCode.IsSuccess() || len(missing) > 0 {
		return nil, &ExecutionError{
			Command:  ex.Command.String(),
			ExitCode: ex.ExitCode,
			Stdout:   ex.Stdout,
			Stderr:   ex.Stderr,
			Missing:  missing,
		}
	}
	return &Result{
		ParamsPath:    expected.ParamsPath,
		CouplingsPath: expected.CouplingsPath,
		Stdout:        ex.Stdout,
		Stderr:        ex.Stderr,
		ExitCode:      ex.ExitCode,
		Command:       ex.Command.String(),
		Duration:      ex.Duration,
	}, nil
}

// LogText joins the captured streams the way plmc prints them to a terminal.
func (r *Result) LogText() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

func missingOutputs(expected ExpectedOutputs) []string {
	var missing []string
	for _, path := range []string{expected.ParamsPath, expected.CouplingsPath} {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			missing = append(missing, path)
		}
	}
	return missing
}

// removeOutputs deletes whatever a killed run left at the expected paths.
func removeOutputs(expected ExpectedOutputs) {
	for _, path := range []string{expected.ParamsPath, expected.CouplingsPath} {
		_ = os.Remove(path)
	}
}
