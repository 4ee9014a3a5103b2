// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Manifest statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type (
	// Manifest records one run next to its outputs as <prefix>.run.toml.
	Manifest struct {
		RunID     string          `toml:"run_id"`
		Status    string          `toml:"status"`
		StartedAt time.Time       `toml:"started_at"`
		Duration  string          `toml:"duration"`
		Command   string          `toml:"command"`
		Argv      []string        `toml:"argv"`
		ExitCode  int             `toml:"exit_code"`
		Error     string          `toml:"error,omitempty"`
		Request   ManifestRequest `toml:"request"`
		Outputs   ManifestOutputs `toml:"outputs"`
		Hyper     Hyperparameters `toml:"hyperparameters"`
	}

	// ManifestRequest is the request part of a Manifest.
	ManifestRequest struct {
		AlignmentPath string `toml:"alignment_path"`
		FocusSequence string `toml:"focus_sequence"`
		OutputDir     string `toml:"output_dir"`
		OutPrefix     string `toml:"out_prefix"`
		Timeout       string `toml:"timeout,omitempty"`
	}

	// ManifestOutputs lists the files the run was asked to produce.
	ManifestOutputs struct {
		Params    string `toml:"params"`
		Couplings string `toml:"couplings"`
	}
)

func newManifest(runID string, r Request, ex *Execution, runErr error) Manifest {
	m := Manifest{
		RunID:     runID,
		Status:    StatusSucceeded,
		StartedAt: ex.Started.UTC().Truncate(time.Millisecond),
		Duration:  ex.Duration.Round(time.Millisecond).String(),
		Command:   ex.Command.String(),
		Argv:      ex.Command.Argv(),
		ExitCode:  int(ex.ExitCode),
		Request: ManifestRequest{
			AlignmentPath: r.AlignmentPath,
			FocusSequence: r.FocusSequence,
			OutputDir:     r.OutputDir,
			OutPrefix:     r.OutPrefix,
		},
		Outputs: ManifestOutputs{
			Params:    ex.Command.Outputs.ParamsPath,
			Couplings: ex.Command.Outputs.CouplingsPath,
		},
		Hyper: r.Hyperparameters,
	}
	if r.Timeout > 0 {
		m.Request.Timeout = r.Timeout.String()
	}
	if runErr != nil {
		m.Status = StatusFailed
		m.Error = runErr.Error()
	}
	return m
}

// WriteManifest encodes m as TOML at path.
func WriteManifest(path string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return &m, nil
}
