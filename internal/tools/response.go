// SPDX-License-Identifier: MPL-2.0

package tools

import "github.com/evmodels/plmc-harness/internal/alignment"

type (
	// Artifact is a file produced or consumed by a tool call.
	Artifact struct {
		Description string `json:"description"`
		Path        string `json:"path"`
	}

	// Response is the JSON body returned for a successful tool call.
	Response struct {
		Message    string         `json:"message"`
		Reference  string         `json:"reference"`
		Parameters map[string]any `json:"parameters,omitempty"`
		Artifacts  []Artifact     `json:"artifacts"`

		ParamFilePath    string           `json:"param_file_path,omitempty"`
		CouplingFilePath string           `json:"coupling_file_path,omitempty"`
		A2MFilePath      string           `json:"a2m_file_path,omitempty"`
		Stats            *alignment.Stats `json:"stats,omitempty"`
		LogText          string           `json:"log_text"`
		ExitCode         *int             `json:"exit_code,omitempty"`
		RunID            string           `json:"run_id,omitempty"`
		Command          string           `json:"command,omitempty"`
		ManifestPath     string           `json:"manifest_path,omitempty"`
	}
)
