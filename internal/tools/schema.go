// SPDX-License-Identifier: MPL-2.0

package tools

import (
	"github.com/evmodels/plmc-harness/internal/plmc"
)

func generateModelDefinition(d plmc.Hyperparameters, outPrefix string) Definition {
	return Definition{
		Name: GenerateModel,
		Description: "Generate PLMC model parameters and evolutionary couplings from an A2M alignment. " +
			"Writes <out_prefix>.model_params (binary) and <out_prefix>.EC (text) into output_dir. " +
			"Convert A3M input with " + ConvertA3MToA2M + " first.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"alignment_path", "focus_seq_id"},
			"properties": map[string]any{
				"alignment_path": stringProp("Absolute path to the protein alignment in A2M format"),
				"focus_seq_id":   stringProp("Focus sequence identifier; its uppercase columns are modeled"),
				"output_dir":     stringProp("Absolute output directory (defaults to the server's output directory)"),
				"out_prefix":     withDefault(stringProp("Output file prefix"), outPrefix),
				"lambda_e": withDefault(map[string]any{
					"type": "number", "exclusiveMinimum": 0,
					"description": "L2 regularization strength on couplings (-le)",
				}, d.LambdaE),
				"lambda_h": withDefault(map[string]any{
					"type": "number", "exclusiveMinimum": 0,
					"description": "L2 regularization strength on fields (-lh)",
				}, d.LambdaH),
				"max_iterations": withDefault(map[string]any{
					"type": "integer", "minimum": 1,
					"description": "Maximum number of optimizer iterations (-m)",
				}, d.MaxIterations),
				"theta": withDefault(map[string]any{
					"type": "number", "minimum": 0, "maximum": 1,
					"description": "Sequence reweighting threshold (-t)",
				}, d.Theta),
				"ignore_gaps": withDefault(map[string]any{
					"type":        "boolean",
					"description": "Exclude gaps from the model (-g)",
				}, d.IgnoreGaps),
				"timeout_seconds": map[string]any{
					"type": "number", "exclusiveMinimum": 0,
					"description": "Kill plmc and discard partial output after this many seconds",
				},
			},
		},
	}
}

func convertDefinition() Definition {
	return Definition{
		Name: ConvertA3MToA2M,
		Description: "Convert an A3M alignment to A2M with hh-suite's reformat.pl and remove every column " +
			"in which the query (first) sequence has a gap. Required before " + GenerateModel + " for A3M input.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"a3m_file_path"},
			"properties": map[string]any{
				"a3m_file_path": stringProp("Absolute path to the input A3M alignment"),
				"a2m_file_path": stringProp("Absolute output path; defaults to <output_dir>/<out_prefix>.a2m"),
				"out_prefix":    stringProp("Output file prefix when a2m_file_path is omitted; defaults to the input file stem"),
			},
		},
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func withDefault(prop map[string]any, def any) map[string]any {
	prop["default"] = def
	return prop
}
