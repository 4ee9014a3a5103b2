// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plmc-harness",
		Short: "Run plmc evolutionary-coupling analyses and serve them as tools",
		Long: TitleStyle.Render("plmc-harness") + SubtitleStyle.Render(" - run plmc and serve it as a tool") + `

plmc-harness validates an analysis request, runs the plmc binary once, and
reports the model-parameter and coupling files it produced. The same
operations are available to remote callers over HTTP and SSH.

` + SubtitleStyle.Render("Examples:") + `
  plmc-harness run -a family.a2m -f QUERY_HUMAN   Fit a model
  plmc-harness convert family.a3m                 A3M -> query-gap-free A2M
  plmc-harness tools --markdown                   Describe the tools
  plmc-harness serve --ssh                        Serve tools over HTTP and SSH
  plmc-harness config show                        Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and error chains")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/plmc-harness/config.cue)")

	rootCmd.AddCommand(
		newRunCommand(app),
		newConvertCommand(app),
		newCleanGapsCommand(app),
		newToolsCommand(app),
		newCallCommand(app),
		newServeCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the first failure. It is
// called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
