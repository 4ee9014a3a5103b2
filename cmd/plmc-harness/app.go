// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/evmodels/plmc-harness/internal/alignment"
	"github.com/evmodels/plmc-harness/internal/config"
	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/tools"
	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type (
	// App is the composition root of the CLI. Command handlers receive it and
	// build their services from the loaded configuration.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// set from persistent flags
		cfgFile string
		verbose bool
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// services are built per invocation from the loaded configuration.
	services struct {
		cfg       *config.Config
		runner    *plmc.Runner
		converter *alignment.Converter
	}
)

// NewApp creates an App.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.cfgFile)}
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, a.loadOptions())
}

// logger creates a component logger writing to stderr.
func (a *App) logger(cfg *config.Config, prefix string) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})
	if level, err := log.ParseLevel(cfg.Log.Level.String()); err == nil {
		logger.SetLevel(level)
	}
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	switch cfg.Log.Format {
	case config.LogFormatJSON:
		logger.SetFormatter(log.JSONFormatter)
	case config.LogFormatLogfmt:
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		logger.SetFormatter(log.TextFormatter)
	}
	return logger
}

// services loads the configuration and wires the runner and converter.
func (a *App) services(ctx context.Context) (*services, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	launcher, err := plmc.ParseLauncher(cfg.Plmc.Launcher)
	if err != nil {
		return nil, &plmc.ValidationError{Field: "plmc.launcher", Value: cfg.Plmc.Launcher, Reason: err.Error()}
	}

	executor := &plmc.ProcessExecutor{KillGrace: cfg.Plmc.KillGrace}
	return &services{
		cfg: cfg,
		runner: plmc.NewRunner(plmc.RunnerConfig{
			BinaryPath:       cfg.Plmc.BinaryPath,
			PlmcDir:          cfg.Plmc.PlmcDir,
			EnvDir:           cfg.Plmc.EnvDir,
			Launcher:         launcher,
			DefaultOutputDir: cfg.Paths.OutputDir,
			DefaultTimeout:   cfg.Plmc.Timeout,
			Executor:         executor,
			Logger:           a.logger(cfg, "plmc"),
		}),
		converter: alignment.NewConverter(alignment.ConverterConfig{
			ScriptPath: cfg.Reformat.ScriptPath,
			EnvDir:     cfg.Plmc.EnvDir,
			OutputDir:  cfg.Paths.OutputDir,
			Executor:   executor,
			Logger:     a.logger(cfg, "alignment"),
		}),
	}, nil
}

// hyperparameters returns the configured request defaults.
func (s *services) hyperparameters() plmc.Hyperparameters {
	d := s.cfg.Defaults
	return plmc.Hyperparameters{
		LambdaE:       d.LambdaE,
		LambdaH:       d.LambdaH,
		MaxIterations: d.MaxIterations,
		Theta:         d.Theta,
		IgnoreGaps:    d.IgnoreGaps,
	}
}

// registry builds the tool registry. Remote surfaces pass requireAbsolute.
func (s *services) registry(requireAbsolute bool) *tools.Registry {
	return tools.NewDefaultRegistry(tools.Services{
		Runner:          s.runner,
		Converter:       s.converter,
		Defaults:        s.hyperparameters(),
		OutPrefix:       s.cfg.Defaults.OutPrefix,
		RequireAbsolute: requireAbsolute,
	})
}

// fail renders err with its catalog entry and converts it to an ExitError
// carrying the process exit code. Cobra's own error and usage output is
// silenced; fang still prints the one-line error text after it.
func (a *App) fail(cmd *cobra.Command, err error) error {
	issueID, code, styled := classifyError(err, a.verbose)
	renderServiceError(a.stderr, newServiceError(err, issueID, styled), glamourStyle(a.stderr))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: err}
}

// glamourStyle picks the markdown style for w: "dark" on a terminal,
// "notty" otherwise so that piped output stays free of escape codes.
func glamourStyle(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "dark"
	}
	return "notty"
}
