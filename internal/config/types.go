// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/evmodels/plmc-harness/pkg/types"
)

const (
	// LogFormatText is charm log's human-readable formatter.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits key=value lines.
	LogFormatLogfmt LogFormat = "logfmt"

	// LogLevelDebug enables debug output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn only reports warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError only reports errors.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogFormat selects the charm log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects field-level validation errors from every section.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the harness configuration.
	Config struct {
		Plmc     PlmcConfig     `json:"plmc" mapstructure:"plmc"`
		Reformat ReformatConfig `json:"reformat" mapstructure:"reformat"`
		Paths    PathsConfig    `json:"paths" mapstructure:"paths"`
		Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults"`
		Server   ServerConfig   `json:"server" mapstructure:"server"`
		Log      LogConfig      `json:"log" mapstructure:"log"`
	}

	// PlmcConfig locates and bounds the plmc executable.
	PlmcConfig struct {
		// BinaryPath skips discovery when set (PLMC_BIN).
		BinaryPath string `json:"binary_path,omitempty" mapstructure:"binary_path"`
		// PlmcDir is a plmc checkout; <PlmcDir>/bin/plmc is tried first (PLMC_DIR).
		PlmcDir string `json:"plmc_dir,omitempty" mapstructure:"plmc_dir"`
		// EnvDir is an environment prefix holding bin/plmc and bin/reformat.pl.
		EnvDir string `json:"env_dir,omitempty" mapstructure:"env_dir"`
		// Launcher is prepended to every invocation, e.g. "conda run -n plmc".
		Launcher string `json:"launcher,omitempty" mapstructure:"launcher"`
		// Timeout bounds runs that do not set their own; zero means none.
		Timeout time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
		// KillGrace is how long Execute waits for pipes to drain after a kill.
		KillGrace time.Duration `json:"kill_grace,omitempty" mapstructure:"kill_grace"`
	}

	// ReformatConfig locates hh-suite's reformat.pl.
	ReformatConfig struct {
		ScriptPath string `json:"script_path,omitempty" mapstructure:"script_path"`
	}

	// PathsConfig holds the default input and output directories.
	PathsConfig struct {
		InputDir  string `json:"input_dir,omitempty" mapstructure:"input_dir"`
		OutputDir string `json:"output_dir,omitempty" mapstructure:"output_dir"`
	}

	// DefaultsConfig overrides the request defaults for the CLI and tool surfaces.
	DefaultsConfig struct {
		OutPrefix     string  `json:"out_prefix,omitempty" mapstructure:"out_prefix"`
		LambdaE       float64 `json:"lambda_e,omitempty" mapstructure:"lambda_e"`
		LambdaH       float64 `json:"lambda_h,omitempty" mapstructure:"lambda_h"`
		MaxIterations int     `json:"max_iterations,omitempty" mapstructure:"max_iterations"`
		Theta         float64 `json:"theta,omitempty" mapstructure:"theta"`
		IgnoreGaps    bool    `json:"ignore_gaps,omitempty" mapstructure:"ignore_gaps"`
	}

	// ServerConfig configures the HTTP and SSH tool servers.
	ServerConfig struct {
		Host            string           `json:"host,omitempty" mapstructure:"host"`
		Port            types.ListenPort `json:"port,omitempty" mapstructure:"port"`
		SSHPort         types.ListenPort `json:"ssh_port,omitempty" mapstructure:"ssh_port"`
		Token           string           `json:"token,omitempty" mapstructure:"token"`
		HostKeyPath     string           `json:"host_key_path,omitempty" mapstructure:"host_key_path"`
		ReadTimeout     time.Duration    `json:"read_timeout,omitempty" mapstructure:"read_timeout"`
		ShutdownTimeout time.Duration    `json:"shutdown_timeout,omitempty" mapstructure:"shutdown_timeout"`
	}

	// LogConfig configures the charm log output.
	LogConfig struct {
		Level  LogLevel  `json:"level,omitempty" mapstructure:"level"`
		Format LogFormat `json:"format,omitempty" mapstructure:"format"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Plmc: PlmcConfig{
			PlmcDir:   "repo/plmc",
			EnvDir:    "env",
			KillGrace: 5 * time.Second,
		},
		Paths: PathsConfig{
			InputDir:  "tmp/inputs",
			OutputDir: "tmp/outputs",
		},
		Defaults: DefaultsConfig{
			OutPrefix:     "uniref100",
			LambdaE:       16.2,
			LambdaH:       0.01,
			MaxIterations: 200,
			Theta:         0.2,
			IgnoreGaps:    true,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8765,
			SSHPort:         2222,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Validate re-checks the constraints CUE enforces on the file, since env
// overrides and programmatic configs bypass the schema.
func (c Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Server.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Server.SSHPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	d := c.Defaults
	if strings.ContainsAny(d.OutPrefix, `/\`) {
		errs = append(errs, fmt.Errorf("defaults.out_prefix %q must not contain path separators", d.OutPrefix))
	}
	if !positiveFinite(d.LambdaE) {
		errs = append(errs, fmt.Errorf("defaults.lambda_e must be positive, got %v", d.LambdaE))
	}
	if !positiveFinite(d.LambdaH) {
		errs = append(errs, fmt.Errorf("defaults.lambda_h must be positive, got %v", d.LambdaH))
	}
	if d.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("defaults.max_iterations must be at least 1, got %d", d.MaxIterations))
	}
	if d.Theta < 0 || d.Theta > 1 || math.IsNaN(d.Theta) {
		errs = append(errs, fmt.Errorf("defaults.theta must be within [0, 1], got %v", d.Theta))
	}
	if c.Plmc.Timeout < 0 {
		errs = append(errs, fmt.Errorf("plmc.timeout must not be negative, got %s", c.Plmc.Timeout))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// Validate returns an error if the LogFormat is not one of text, json, logfmt.
func (f LogFormat) Validate() error {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return nil
	default:
		return &InvalidLogFormatError{Value: f}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate returns an error if the LogLevel is not recognized.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }
