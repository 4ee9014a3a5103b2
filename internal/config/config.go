// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/evmodels/plmc-harness/internal/cueutil"
	"github.com/evmodels/plmc-harness/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for the config directory.
	AppName = "plmc-harness"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	// OperationLoad and OperationValidate name the ActionableError
	// operations returned by Load.
	OperationLoad     = "load configuration"
	OperationValidate = "validate configuration"
)

//go:embed config_schema.cue
var configSchema []byte

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"plmc.binary_path":     "PLMC_BIN",
	"plmc.plmc_dir":        "PLMC_DIR",
	"reformat.script_path": "PLMC_REFORMAT",
	"paths.input_dir":      "PLMC_INPUT_DIR",
	"paths.output_dir":     "PLMC_OUTPUT_DIR",
	"server.token":         "PLMC_SERVER_TOKEN",
}

// ConfigDir returns the plmc-harness configuration directory: ~/Library/Application
// Support on macOS, $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	} else {
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultConfigPath is the config.cue inside ConfigDir.
func DefaultConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions loads the configuration and reports which file, if any, it
// came from. An empty path means built-in defaults plus environment.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, "", fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation(OperationLoad).
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema printed by 'plmc-harness config init'").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation(OperationValidate).
			WithResource(displayPath(resolvedPath)).
			WithSuggestion("Check the PLMC_* environment variables").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath applies the lookup order: explicit file, config dir, then
// the current directory. A missing explicit file is an error; the others are
// optional.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		path := string(opts.ConfigFilePath)
		if !fileExists(path) {
			return "", issue.NewErrorContext().
				WithOperation(OperationLoad).
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'plmc-harness config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		return path, nil
	}

	cfgDir := string(opts.ConfigDirPath)
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	name := ConfigFileName + "." + ConfigFileExt
	if path := filepath.Join(cfgDir, name); fileExists(path) {
		return path, nil
	}
	if path := filepath.Join(string(opts.BaseDir), name); fileExists(path) {
		return path, nil
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("plmc.binary_path", d.Plmc.BinaryPath)
	v.SetDefault("plmc.plmc_dir", d.Plmc.PlmcDir)
	v.SetDefault("plmc.env_dir", d.Plmc.EnvDir)
	v.SetDefault("plmc.launcher", d.Plmc.Launcher)
	v.SetDefault("plmc.timeout", d.Plmc.Timeout)
	v.SetDefault("plmc.kill_grace", d.Plmc.KillGrace)
	v.SetDefault("reformat.script_path", d.Reformat.ScriptPath)
	v.SetDefault("paths.input_dir", d.Paths.InputDir)
	v.SetDefault("paths.output_dir", d.Paths.OutputDir)
	v.SetDefault("defaults.out_prefix", d.Defaults.OutPrefix)
	v.SetDefault("defaults.lambda_e", d.Defaults.LambdaE)
	v.SetDefault("defaults.lambda_h", d.Defaults.LambdaH)
	v.SetDefault("defaults.max_iterations", d.Defaults.MaxIterations)
	v.SetDefault("defaults.theta", d.Defaults.Theta)
	v.SetDefault("defaults.ignore_gaps", d.Defaults.IgnoreGaps)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", int(d.Server.Port))
	v.SetDefault("server.ssh_port", int(d.Server.SSHPort))
	v.SetDefault("server.token", d.Server.Token)
	v.SetDefault("server.host_key_path", d.Server.HostKeyPath)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", string(d.Log.Format))
}

// loadCUEIntoViper validates path against #Config and merges it into v.
// Config fields are optional, so the document is decoded into a map with
// concreteness relaxed rather than into Config directly.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	res, err := cueutil.DecodeFile[map[string]any](configSchema, path, "#Config", cueutil.WithConcrete(false))
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func displayPath(path string) string {
	if path == "" {
		return "<defaults>"
	}
	return path
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config.cue document accepted by #Config.
// Empty strings and zero durations are omitted so that they keep falling back
// to discovery and defaults.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// plmc-harness configuration\n")
	sb.WriteString("// Environment variables PLMC_BIN, PLMC_DIR, PLMC_REFORMAT, PLMC_INPUT_DIR,\n")
	sb.WriteString("// PLMC_OUTPUT_DIR and PLMC_SERVER_TOKEN override the values below.\n")

	sb.WriteString("\nplmc: {\n")
	writeString(&sb, "binary_path", cfg.Plmc.BinaryPath)
	writeString(&sb, "plmc_dir", cfg.Plmc.PlmcDir)
	writeString(&sb, "env_dir", cfg.Plmc.EnvDir)
	writeString(&sb, "launcher", cfg.Plmc.Launcher)
	if cfg.Plmc.Timeout > 0 {
		writeString(&sb, "timeout", cfg.Plmc.Timeout.String())
	}
	if cfg.Plmc.KillGrace > 0 {
		writeString(&sb, "kill_grace", cfg.Plmc.KillGrace.String())
	}
	sb.WriteString("}\n")

	sb.WriteString("\nreformat: {\n")
	writeString(&sb, "script_path", cfg.Reformat.ScriptPath)
	sb.WriteString("}\n")

	sb.WriteString("\npaths: {\n")
	writeString(&sb, "input_dir", cfg.Paths.InputDir)
	writeString(&sb, "output_dir", cfg.Paths.OutputDir)
	sb.WriteString("}\n")

	sb.WriteString("\ndefaults: {\n")
	writeString(&sb, "out_prefix", cfg.Defaults.OutPrefix)
	fmt.Fprintf(&sb, "\tlambda_e: %s\n", cueNumber(cfg.Defaults.LambdaE))
	fmt.Fprintf(&sb, "\tlambda_h: %s\n", cueNumber(cfg.Defaults.LambdaH))
	fmt.Fprintf(&sb, "\tmax_iterations: %d\n", cfg.Defaults.MaxIterations)
	fmt.Fprintf(&sb, "\ttheta: %s\n", cueNumber(cfg.Defaults.Theta))
	fmt.Fprintf(&sb, "\tignore_gaps: %v\n", cfg.Defaults.IgnoreGaps)
	sb.WriteString("}\n")

	sb.WriteString("\nserver: {\n")
	writeString(&sb, "host", cfg.Server.Host)
	fmt.Fprintf(&sb, "\tport: %d\n", cfg.Server.Port)
	fmt.Fprintf(&sb, "\tssh_port: %d\n", cfg.Server.SSHPort)
	writeString(&sb, "token", cfg.Server.Token)
	writeString(&sb, "host_key_path", cfg.Server.HostKeyPath)
	if cfg.Server.ReadTimeout > 0 {
		writeString(&sb, "read_timeout", cfg.Server.ReadTimeout.String())
	}
	if cfg.Server.ShutdownTimeout > 0 {
		writeString(&sb, "shutdown_timeout", cfg.Server.ShutdownTimeout.String())
	}
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	writeString(&sb, "level", string(cfg.Log.Level))
	writeString(&sb, "format", string(cfg.Log.Format))
	sb.WriteString("}\n")

	return sb.String()
}

func writeString(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "\t%s: %q\n", key, value)
}

// cueNumber formats a float so that CUE reads it back as a number, not an int.
func cueNumber(f float64) string {
	s := fmt.Sprintf("%v", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
