// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/evmodels/plmc-harness/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `plmc-harness config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage plmc-harness configuration",
		Long: `Manage plmc-harness configuration.

The configuration file is looked up at --config, then
$XDG_CONFIG_HOME/plmc-harness/config.cue, then ./config.cue. Environment
variables (PLMC_BIN, PLMC_DIR, PLMC_REFORMAT, PLMC_INPUT_DIR, PLMC_OUTPUT_DIR,
PLMC_SERVER_TOKEN) override the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.Config.Path(app.loadOptions())
			if err != nil {
				return app.fail(cmd, err)
			}
			if path == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return app.fail(cmd, err)
				}
			}
			written, err := config.WriteDefault(path)
			if err != nil {
				return app.fail(cmd, err)
			}
			if !written {
				fmt.Fprintf(app.stdout, "%s %s already exists\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.fail(cmd, err)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path, pathErr := app.Config.Path(app.loadOptions()); pathErr == nil && path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	value := func(v string) string {
		if v == "" {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(v)
	}
	duration := func(d time.Duration) string {
		if d == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return valueStyle.Render(d.String())
	}
	section := func(name string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
	}
	field := func(name, v string) {
		fmt.Fprintf(w, "  %s: %s\n", name, v)
	}

	section("plmc")
	field("binary_path", value(cfg.Plmc.BinaryPath))
	field("plmc_dir", value(cfg.Plmc.PlmcDir))
	field("env_dir", value(cfg.Plmc.EnvDir))
	field("launcher", value(cfg.Plmc.Launcher))
	field("timeout", duration(cfg.Plmc.Timeout))
	field("kill_grace", duration(cfg.Plmc.KillGrace))

	section("reformat")
	field("script_path", value(cfg.Reformat.ScriptPath))

	section("paths")
	field("input_dir", value(cfg.Paths.InputDir))
	field("output_dir", value(cfg.Paths.OutputDir))

	d := cfg.Defaults
	section("defaults")
	field("out_prefix", value(d.OutPrefix))
	field("lambda_e", valueStyle.Render(fmt.Sprint(d.LambdaE)))
	field("lambda_h", valueStyle.Render(fmt.Sprint(d.LambdaH)))
	field("max_iterations", valueStyle.Render(fmt.Sprint(d.MaxIterations)))
	field("theta", valueStyle.Render(fmt.Sprint(d.Theta)))
	field("ignore_gaps", valueStyle.Render(fmt.Sprint(d.IgnoreGaps)))

	s := cfg.Server
	section("server")
	field("host", value(s.Host))
	field("port", valueStyle.Render(s.Port.String()))
	field("ssh_port", valueStyle.Render(s.SSHPort.String()))
	token := ""
	if s.Token != "" {
		token = "********"
	}
	field("token", value(token))
	field("host_key_path", value(s.HostKeyPath))
	field("read_timeout", duration(s.ReadTimeout))
	field("shutdown_timeout", duration(s.ShutdownTimeout))

	section("log")
	field("level", value(cfg.Log.Level.String()))
	field("format", value(cfg.Log.Format.String()))
	return nil
}
