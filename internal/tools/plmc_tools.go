// SPDX-License-Identifier: MPL-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/evmodels/plmc-harness/internal/alignment"
	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/pkg/types"
)

const (
	// GenerateModel fits a plmc model from an A2M alignment.
	GenerateModel = "plmc_generate_model"
	// ConvertA3MToA2M converts an A3M alignment and removes query-gap columns.
	ConvertA3MToA2M = "plmc_convert_a3m_to_a2m"

	// maxTimeoutSeconds is the longest timeout a time.Duration can hold.
	maxTimeoutSeconds = float64(math.MaxInt64 / int64(time.Second))

	plmcReference    = "https://github.com/debbiemarkslab/plmc"
	hhsuiteReference = "https://github.com/soedinglab/hh-suite"
)

type (
	// ModelRunner is implemented by *plmc.Runner.
	ModelRunner interface {
		Run(ctx context.Context, req plmc.Request) (*plmc.Result, error)
	}

	// AlignmentConverter is implemented by *alignment.Converter.
	AlignmentConverter interface {
		Convert(ctx context.Context, req alignment.ConvertRequest) (*alignment.ConvertResult, error)
	}

	// Services are the collaborators the built-in tools dispatch to.
	Services struct {
		Runner    ModelRunner
		Converter AlignmentConverter
		// Defaults fill hyperparameters a caller leaves out.
		Defaults plmc.Hyperparameters
		// OutPrefix fills out_prefix when a caller leaves it out.
		OutPrefix string
		// RequireAbsolute rejects relative paths. Remote surfaces set it so
		// that nothing resolves against the server's working directory.
		RequireAbsolute bool
	}

	generateArgs struct {
		AlignmentPath  string   `json:"alignment_path"`
		FocusSeqID     string   `json:"focus_seq_id"`
		OutputDir      string   `json:"output_dir,omitempty"`
		OutPrefix      string   `json:"out_prefix,omitempty"`
		LambdaE        *float64 `json:"lambda_e,omitempty"`
		LambdaH        *float64 `json:"lambda_h,omitempty"`
		MaxIterations  *int     `json:"max_iterations,omitempty"`
		Theta          *float64 `json:"theta,omitempty"`
		IgnoreGaps     *bool    `json:"ignore_gaps,omitempty"`
		TimeoutSeconds *float64 `json:"timeout_seconds,omitempty"`
	}

	convertArgs struct {
		A3MFilePath string `json:"a3m_file_path"`
		A2MFilePath string `json:"a2m_file_path,omitempty"`
		OutPrefix   string `json:"out_prefix,omitempty"`
	}
)

// NewDefaultRegistry registers the built-in tools against svc.
func NewDefaultRegistry(svc Services) *Registry {
	if svc.Defaults == (plmc.Hyperparameters{}) {
		svc.Defaults = plmc.DefaultHyperparameters()
	}
	if svc.OutPrefix == "" {
		svc.OutPrefix = plmc.DefaultOutPrefix
	}
	r := NewRegistry()
	r.Register(Tool{Definition: generateModelDefinition(svc.Defaults, svc.OutPrefix), Handler: svc.generateModel})
	r.Register(Tool{Definition: convertDefinition(), Handler: svc.convert})
	return r
}

func (s Services) generateModel(ctx context.Context, raw json.RawMessage) (*Response, error) {
	var args generateArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := s.checkPath("alignment_path", args.AlignmentPath, true); err != nil {
		return nil, err
	}
	if err := s.checkPath("output_dir", args.OutputDir, false); err != nil {
		return nil, err
	}

	h := s.Defaults
	if args.LambdaE != nil {
		h.LambdaE = *args.LambdaE
	}
	if args.LambdaH != nil {
		h.LambdaH = *args.LambdaH
	}
	if args.MaxIterations != nil {
		h.MaxIterations = *args.MaxIterations
	}
	if args.Theta != nil {
		h.Theta = *args.Theta
	}
	if args.IgnoreGaps != nil {
		h.IgnoreGaps = *args.IgnoreGaps
	}

	req := plmc.Request{
		AlignmentPath:   args.AlignmentPath,
		FocusSequence:   args.FocusSeqID,
		OutputDir:       args.OutputDir,
		OutPrefix:       args.OutPrefix,
		Hyperparameters: h,
	}
	if req.OutPrefix == "" {
		req.OutPrefix = s.OutPrefix
	}
	if args.TimeoutSeconds != nil {
		secs := *args.TimeoutSeconds
		if !(secs > 0) || math.IsInf(secs, 0) {
			return nil, &plmc.ValidationError{Field: "timeout_seconds", Value: fmt.Sprint(secs), Reason: "must be a positive number"}
		}
		if secs > maxTimeoutSeconds {
			return nil, &plmc.ValidationError{Field: "timeout_seconds", Value: fmt.Sprint(secs), Reason: fmt.Sprintf("must not exceed %.0f", maxTimeoutSeconds)}
		}
		req.Timeout = time.Duration(secs * float64(time.Second))
	}

	res, err := s.Runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	exitCode := int(res.ExitCode)
	return &Response{
		Message:   fmt.Sprintf("PLMC model generated successfully for %s", args.FocusSeqID),
		Reference: plmcReference,
		Parameters: map[string]any{
			"lambda_e":       h.LambdaE,
			"lambda_h":       h.LambdaH,
			"max_iterations": h.MaxIterations,
			"theta":          h.Theta,
			"ignore_gaps":    h.IgnoreGaps,
			"focus_seq":      args.FocusSeqID,
		},
		Artifacts: []Artifact{
			{Description: "Model parameters file (for EV predictor)", Path: absPath(res.ParamsPath)},
			{Description: "Evolutionary couplings file (for EV predictor)", Path: absPath(res.CouplingsPath)},
		},
		ParamFilePath:    absPath(res.ParamsPath),
		CouplingFilePath: absPath(res.CouplingsPath),
		LogText:          res.LogText(),
		ExitCode:         &exitCode,
		RunID:            res.RunID,
		Command:          res.Command,
		ManifestPath:     absPath(res.ManifestPath),
	}, nil
}

func (s Services) convert(ctx context.Context, raw json.RawMessage) (*Response, error) {
	var args convertArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := s.checkPath("a3m_file_path", args.A3MFilePath, true); err != nil {
		return nil, err
	}
	if err := s.checkPath("a2m_file_path", args.A2MFilePath, false); err != nil {
		return nil, err
	}

	res, err := s.Converter.Convert(ctx, alignment.ConvertRequest{
		InputPath:  args.A3MFilePath,
		OutputPath: args.A2MFilePath,
		OutPrefix:  args.OutPrefix,
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Message:   "Successfully converted A3M to A2M format and cleaned query gaps",
		Reference: hhsuiteReference,
		Artifacts: []Artifact{
			{Description: "Input A3M alignment file", Path: absPath(res.InputPath)},
			{Description: "Output A2M alignment file with query gaps removed (ready for plmc_generate_model)", Path: absPath(res.OutputPath)},
		},
		A2MFilePath: absPath(res.OutputPath),
		Stats:       &res.Stats,
		LogText:     res.LogText,
	}, nil
}

// checkPath enforces presence and, for remote callers, absoluteness.
func (s Services) checkPath(field, value string, required bool) error {
	if value == "" {
		if required {
			return &plmc.ValidationError{Field: field, Reason: "must be provided"}
		}
		return nil
	}
	p := types.FilesystemPath(value)
	err := p.Validate()
	if err == nil && s.RequireAbsolute {
		err = p.ValidateAbsolute()
	}
	if err != nil {
		return &plmc.ValidationError{Field: field, Value: value, Reason: err.Error()}
	}
	return nil
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
