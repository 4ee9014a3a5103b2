// SPDX-License-Identifier: MPL-2.0

package alignment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/charmbracelet/log"
)

// ReformatScript is the hh-suite converter looked up on PATH.
const ReformatScript = "reformat.pl"

type (
	// ConverterConfig wires a Converter to its environment.
	ConverterConfig struct {
		// ScriptPath is an explicit reformat.pl; skips discovery.
		ScriptPath string
		// EnvDir is an environment prefix holding bin/ or scripts/reformat.pl.
		EnvDir string
		// OutputDir receives outputs of requests without OutputPath.
		OutputDir string
		Executor  plmc.Executor
		Locator   plmc.Locator
		Logger    *log.Logger
	}

	// Converter turns A3M alignments into query-gap-free A2M.
	Converter struct {
		cfg ConverterConfig
	}

	// ConvertRequest names the input and, optionally, the output.
	ConvertRequest struct {
		InputPath string
		// OutputPath defaults to <OutputDir>/<OutPrefix>.a2m.
		OutputPath string
		// OutPrefix defaults to the input file name without extension.
		OutPrefix string
	}

	// ConvertResult reports where the A2M went and what cleanup did.
	ConvertResult struct {
		InputPath  string
		OutputPath string
		Stats      Stats
		LogText    string
	}
)

// NewConverter creates a Converter.
func NewConverter(cfg ConverterConfig) *Converter {
	if cfg.Executor == nil {
		cfg.Executor = &plmc.ProcessExecutor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Converter{cfg: cfg}
}

// LocateScript resolves reformat.pl.
func (c *Converter) LocateScript() (string, error) {
	var candidates []string
	if c.cfg.EnvDir != "" {
		candidates = append(candidates,
			filepath.Join(c.cfg.EnvDir, "bin", ReformatScript),
			filepath.Join(c.cfg.EnvDir, "scripts", ReformatScript),
		)
	}
	return c.cfg.Locator.Find(ReformatScript, c.cfg.ScriptPath, candidates...)
}

// OutputPath resolves where req will be written.
func (c *Converter) OutputPath(req ConvertRequest) string {
	if req.OutputPath != "" {
		return req.OutputPath
	}
	prefix := req.OutPrefix
	if prefix == "" {
		base := filepath.Base(req.InputPath)
		prefix = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(c.cfg.OutputDir, prefix+".a2m")
}

// Convert runs "reformat.pl a3m a2m <in> <out>" and then removes query-gap
// columns from <out> in place.
func (c *Converter) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	if err := validateInput(req.InputPath); err != nil {
		return nil, err
	}
	if strings.ContainsAny(req.OutPrefix, `/\`) {
		return nil, &plmc.ValidationError{Field: "out_prefix", Value: req.OutPrefix, Reason: "must be a bare file name without path separators"}
	}
	out := c.OutputPath(req)
	if err := types.FilesystemPath(out).Validate(); err != nil {
		return nil, &plmc.ValidationError{Field: "a2m_file_path", Value: out, Reason: err.Error()}
	}

	script, err := c.LocateScript()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, &plmc.EnvironmentError{Tool: "output directory", Searched: []string{filepath.Dir(out)}, Cause: err}
	}

	cmd := plmc.Command{Path: script, Args: []string{"a3m", "a2m", req.InputPath, out}}
	logger := c.cfg.Logger.With("input", req.InputPath)
	logger.Info("converting A3M to A2M", "output", out)
	logger.Debug("command", "cmd", cmd.String())

	ex, err := c.cfg.Executor.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !ex.ExitCode.IsSuccess() {
		return nil, &plmc.ExecutionError{
			Command:  cmd.String(),
			ExitCode: ex.ExitCode,
			Stdout:   ex.Stdout,
			Stderr:   ex.Stderr,
		}
	}
	if info, statErr := os.Stat(out); statErr != nil || info.Size() == 0 {
		return nil, &plmc.ExecutionError{
			Command: cmd.String(),
			Stdout:  ex.Stdout,
			Stderr:  ex.Stderr,
			Missing: []string{out},
		}
	}

	stats, err := CleanFile(out, out)
	switch {
	case errors.Is(err, ErrEmptyAlignment), errors.Is(err, ErrRaggedAlignment):
		return nil, &plmc.ValidationError{Field: "a3m_file_path", Value: req.InputPath, Reason: "reformat produced an unusable alignment: " + err.Error()}
	case err != nil:
		return nil, fmt.Errorf("failed to clean query gaps: %w", err)
	}
	logger.Info("query gaps removed",
		"sequences", stats.Sequences, "original_length", stats.OriginalLength,
		"gaps_removed", stats.GapsRemoved, "new_length", stats.NewLength)

	return &ConvertResult{
		InputPath:  req.InputPath,
		OutputPath: out,
		Stats:      stats,
		LogText:    strings.TrimSpace(ex.Stdout + "\n" + ex.Stderr),
	}, nil
}

func validateInput(path string) error {
	if strings.TrimSpace(path) == "" {
		return &plmc.ValidationError{Field: "a3m_file_path", Reason: "must not be empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &plmc.ValidationError{Field: "a3m_file_path", Value: path, Reason: "file does not exist"}
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return &plmc.ValidationError{Field: "a3m_file_path", Value: path, Reason: "not a non-empty regular file"}
	}
	return nil
}
