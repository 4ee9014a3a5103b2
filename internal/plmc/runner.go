// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// RunnerConfig wires a Runner to its environment.
	RunnerConfig struct {
		// BinaryPath is an explicit plmc executable; skips discovery.
		BinaryPath string
		// PlmcDir and EnvDir feed PlmcCandidates.
		PlmcDir string
		EnvDir  string
		// Launcher words run before the binary, e.g. conda run -n plmc.
		Launcher []string
		// DefaultOutputDir is used for requests without OutputDir.
		DefaultOutputDir string
		// DefaultTimeout applies to requests without Timeout.
		DefaultTimeout time.Duration
		// Executor defaults to a ProcessExecutor.
		Executor Executor
		Locator  Locator
		Logger   *log.Logger
	}

	// Runner executes analysis requests. It holds no per-request state and
	// is safe for concurrent use as long as requests use distinct output
	// directories.
	Runner struct {
		cfg RunnerConfig
	}
)

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Executor == nil {
		cfg.Executor = &ProcessExecutor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Runner{cfg: cfg}
}

// LocateBinary resolves the plmc executable the Runner would use. With a
// launcher configured, an unresolved binary is left for the launcher to find
// by name.
func (r *Runner) LocateBinary() (string, error) {
	path, err := r.cfg.Locator.Find("plmc", r.cfg.BinaryPath, PlmcCandidates(r.cfg.PlmcDir, r.cfg.EnvDir)...)
	if err != nil && r.cfg.BinaryPath == "" && len(r.cfg.Launcher) > 0 {
		return "plmc", nil
	}
	return path, err
}

// Run executes req: defaults, validation, discovery, output directory,
// command, one process, interpretation, manifest. Outputs of a timed-out or
// cancelled run are removed; those of a failed run are kept for diagnosis.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	req = req.WithDefaults(r.cfg.DefaultOutputDir)
	if req.Timeout == 0 {
		req.Timeout = r.cfg.DefaultTimeout
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	binary, err := r.LocateBinary()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, &EnvironmentError{Tool: "output directory", Searched: []string{req.OutputDir}, Cause: err}
	}

	runID := uuid.NewString()
	cmd := BuildCommand(binary, req, r.cfg.Launcher...)
	logger := r.cfg.Logger.With("run", runID, "focus", req.FocusSequence)
	logger.Info("starting plmc", "alignment", req.AlignmentPath, "output_dir", req.OutputDir)
	logger.Debug("command", "cmd", cmd.String())

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	ex, err := r.cfg.Executor.Execute(runCtx, cmd)
	if err != nil {
		return nil, r.abort(logger, req, cmd, err)
	}

	res, err := Interpret(ex, cmd.Outputs)
	manifestPath := req.ManifestPath()
	if mErr := WriteManifest(manifestPath, newManifest(runID, req, ex, err)); mErr != nil {
		logger.Warn("could not write run manifest", "path", manifestPath, "err", mErr)
		manifestPath = ""
	}
	if err != nil {
		logger.Error("plmc failed", "exit_code", ex.ExitCode, "duration", ex.Duration, "err", err)
		return nil, err
	}

	res.RunID = runID
	res.ManifestPath = manifestPath
	logger.Info("plmc finished", "duration", res.Duration.Round(time.Millisecond), "couplings", res.CouplingsPath)
	return res, nil
}

// abort finalizes a run the executor gave up on.
func (r *Runner) abort(logger *log.Logger, req Request, cmd Command, err error) error {
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		timeoutErr.Timeout = req.Timeout
		removeOutputs(cmd.Outputs)
		logger.Error("plmc timed out", "timeout", req.Timeout)
	case errors.Is(err, context.Canceled):
		removeOutputs(cmd.Outputs)
		logger.Warn("plmc cancelled")
	case errors.Is(err, ErrEnvironment):
		logger.Error("plmc could not be started", "err", err)
	default:
		logger.Error("plmc failed", "err", err)
	}
	return err
}
