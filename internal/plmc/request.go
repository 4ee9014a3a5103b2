// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultOutPrefix names the output files when a request leaves OutPrefix empty.
	DefaultOutPrefix = "uniref100"

	// ParamsSuffix is appended to the prefix for the binary model-parameter file.
	ParamsSuffix = ".model_params"
	// CouplingsSuffix is appended to the prefix for the coupling-score file.
	CouplingsSuffix = ".EC"
	// ManifestSuffix is appended to the prefix for the run manifest.
	ManifestSuffix = ".run.toml"
)

type (
	// Hyperparameters are the plmc fitting options exposed by the harness.
	// The zero value means "use DefaultHyperparameters".
	Hyperparameters struct {
		// LambdaE is the L2 penalty on couplings (-le).
		LambdaE float64 `json:"lambda_e" toml:"lambda_e"`
		// LambdaH is the L2 penalty on fields (-lh).
		LambdaH float64 `json:"lambda_h" toml:"lambda_h"`
		// MaxIterations caps the optimizer (-m).
		MaxIterations int `json:"max_iterations" toml:"max_iterations"`
		// Theta is the sequence reweighting threshold (-t).
		Theta float64 `json:"theta" toml:"theta"`
		// IgnoreGaps excludes gaps from the model (-g).
		IgnoreGaps bool `json:"ignore_gaps" toml:"ignore_gaps"`
	}

	// Request is one plmc analysis. It is passed by value and never modified
	// once submitted.
	Request struct {
		AlignmentPath   string
		FocusSequence   string
		OutputDir       string
		OutPrefix       string
		Hyperparameters Hyperparameters
		// Timeout bounds the run; zero means no bound beyond the caller's context.
		Timeout time.Duration
	}

	// ExpectedOutputs are the files a successful run must leave behind.
	ExpectedOutputs struct {
		ParamsPath    string
		CouplingsPath string
	}
)

// DefaultHyperparameters returns the settings tuned for EV+Onehot models.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		LambdaE:       16.2,
		LambdaH:       0.01,
		MaxIterations: 200,
		Theta:         0.2,
		IgnoreGaps:    true,
	}
}

// WithDefaults fills the zero-valued parts of r: prefix, output directory
// (from defaultOutputDir) and hyperparameters.
func (r Request) WithDefaults(defaultOutputDir string) Request {
	if r.OutPrefix == "" {
		r.OutPrefix = DefaultOutPrefix
	}
	if r.OutputDir == "" {
		r.OutputDir = defaultOutputDir
	}
	if r.Hyperparameters == (Hyperparameters{}) {
		r.Hyperparameters = DefaultHyperparameters()
	}
	return r
}

// Outputs returns the paths plmc will be asked to write.
func (r Request) Outputs() ExpectedOutputs {
	base := filepath.Join(r.OutputDir, r.OutPrefix)
	return ExpectedOutputs{
		ParamsPath:    base + ParamsSuffix,
		CouplingsPath: base + CouplingsSuffix,
	}
}

// ManifestPath is where Runner records the run.
func (r Request) ManifestPath() string {
	return filepath.Join(r.OutputDir, r.OutPrefix+ManifestSuffix)
}

// Validate checks r field by field and returns a *ValidationError for the
// first offending field. The alignment is stat'ed and opened, never parsed.
func Validate(r Request) error {
	if err := validateAlignment(r.AlignmentPath); err != nil {
		return err
	}
	if strings.TrimSpace(r.FocusSequence) == "" {
		return &ValidationError{Field: "focus_sequence", Reason: "must not be empty"}
	}
	if strings.ContainsAny(r.FocusSequence, " \t\r\n") {
		return &ValidationError{Field: "focus_sequence", Value: r.FocusSequence, Reason: "must not contain whitespace"}
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return &ValidationError{Field: "output_dir", Reason: "must not be empty"}
	}
	if info, err := os.Stat(r.OutputDir); err == nil && !info.IsDir() {
		return &ValidationError{Field: "output_dir", Value: r.OutputDir, Reason: "exists and is not a directory"}
	}
	switch {
	case r.OutPrefix == "":
		return &ValidationError{Field: "out_prefix", Reason: "must not be empty"}
	case strings.ContainsAny(r.OutPrefix, `/\`), r.OutPrefix == ".", r.OutPrefix == "..":
		return &ValidationError{Field: "out_prefix", Value: r.OutPrefix, Reason: "must be a bare file name without path separators"}
	}
	if r.Timeout < 0 {
		return &ValidationError{Field: "timeout", Value: r.Timeout.String(), Reason: "must not be negative"}
	}
	return r.Hyperparameters.Validate()
}

// Validate checks the numeric ranges plmc accepts.
func (h Hyperparameters) Validate() error {
	if !(h.LambdaE > 0) || math.IsInf(h.LambdaE, 0) {
		return &ValidationError{Field: "lambda_e", Value: formatFloat(h.LambdaE), Reason: "must be a positive finite number"}
	}
	if !(h.LambdaH > 0) || math.IsInf(h.LambdaH, 0) {
		return &ValidationError{Field: "lambda_h", Value: formatFloat(h.LambdaH), Reason: "must be a positive finite number"}
	}
	if h.MaxIterations < 1 {
		return &ValidationError{Field: "max_iterations", Value: strconv.Itoa(h.MaxIterations), Reason: "must be a positive integer"}
	}
	if !(h.Theta >= 0 && h.Theta <= 1) {
		return &ValidationError{Field: "theta", Value: formatFloat(h.Theta), Reason: "must be within [0, 1]"}
	}
	return nil
}

func validateAlignment(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ValidationError{Field: "alignment_path", Reason: "must not be empty"}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &ValidationError{Field: "alignment_path", Value: path, Reason: "file does not exist"}
	case err != nil:
		return &ValidationError{Field: "alignment_path", Value: path, Reason: err.Error()}
	case !info.Mode().IsRegular():
		return &ValidationError{Field: "alignment_path", Value: path, Reason: "not a regular file"}
	case info.Size() == 0:
		return &ValidationError{Field: "alignment_path", Value: path, Reason: "file is empty"}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ValidationError{Field: "alignment_path", Value: path, Reason: "not readable: " + err.Error()}
	}
	return f.Close()
}

// formatFloat renders the shortest representation that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
