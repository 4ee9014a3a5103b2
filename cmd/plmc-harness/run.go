// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evmodels/plmc-harness/internal/cueutil"
	"github.com/evmodels/plmc-harness/internal/plmc"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

//go:embed request_schema.cue
var requestSchema []byte

type (
	// requestFile is the decoded form of a --request file.
	requestFile struct {
		AlignmentPath string   `json:"alignment_path,omitempty"`
		FocusSeqID    string   `json:"focus_seq_id,omitempty"`
		OutputDir     string   `json:"output_dir,omitempty"`
		OutPrefix     string   `json:"out_prefix,omitempty"`
		LambdaE       *float64 `json:"lambda_e,omitempty"`
		LambdaH       *float64 `json:"lambda_h,omitempty"`
		MaxIterations *int     `json:"max_iterations,omitempty"`
		Theta         *float64 `json:"theta,omitempty"`
		IgnoreGaps    *bool    `json:"ignore_gaps,omitempty"`
		Timeout       string   `json:"timeout,omitempty"`
	}

	runFlags struct {
		request       string
		alignment     string
		focus         string
		outputDir     string
		prefix        string
		lambdaE       float64
		lambdaH       float64
		maxIterations int
		theta         float64
		ignoreGaps    bool
		timeout       time.Duration
		json          bool
	}

	// runSummary is printed by "run --json".
	runSummary struct {
		RunID            string  `json:"run_id"`
		ParamFilePath    string  `json:"param_file_path"`
		CouplingFilePath string  `json:"coupling_file_path"`
		ManifestPath     string  `json:"manifest_path"`
		Command          string  `json:"command"`
		DurationSeconds  float64 `json:"duration_seconds"`
	}
)

func newRunCommand(app *App) *cobra.Command {
	var f runFlags
	defaults := plmc.DefaultHyperparameters()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fit a plmc model to an A2M alignment",
		Long: `Validate an analysis request, run plmc once and report the model-parameter
and coupling files it wrote.

Values are taken from config defaults, then from --request (a CUE file), then
from flags that were set explicitly.`,
		Example: `  plmc-harness run -a family.a2m -f QUERY_HUMAN
  plmc-harness run --request job.cue --theta 0.3
  plmc-harness run -a family.a2m -f Q -o out --timeout 30m --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			req := plmc.Request{
				OutPrefix:       svc.cfg.Defaults.OutPrefix,
				Hyperparameters: svc.hyperparameters(),
			}
			if f.request != "" {
				if req, err = applyRequestFile(req, f.request); err != nil {
					return app.fail(cmd, err)
				}
			}
			req = f.apply(cmd.Flags(), req)

			res, err := svc.runner.Run(cmd.Context(), req)
			if err != nil {
				return app.fail(cmd, err)
			}

			if f.json {
				enc := json.NewEncoder(app.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runSummary{
					RunID:            res.RunID,
					ParamFilePath:    res.ParamsPath,
					CouplingFilePath: res.CouplingsPath,
					ManifestPath:     res.ManifestPath,
					Command:          res.Command,
					DurationSeconds:  res.Duration.Seconds(),
				})
			}

			fmt.Fprintf(app.stdout, "%s plmc model generated for %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(req.FocusSequence))
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("params:   "), res.ParamsPath)
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("couplings:"), res.CouplingsPath)
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("manifest: "), res.ManifestPath)
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("run id:   "), res.RunID)
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("took:     "), res.Duration.Round(time.Millisecond))
			if app.verbose {
				fmt.Fprintf(app.stdout, "\n%s\n%s\n", SubtitleStyle.Render(res.Command), VerboseStyle.Render(res.LogText()))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.request, "request", "", "CUE file holding request fields")
	fl.StringVarP(&f.alignment, "alignment", "a", "", "A2M alignment file")
	fl.StringVarP(&f.focus, "focus", "f", "", "focus (query) sequence identifier")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "output directory (default paths.output_dir)")
	fl.StringVar(&f.prefix, "prefix", "", "output file prefix (default defaults.out_prefix)")
	fl.Float64Var(&f.lambdaE, "lambda-e", defaults.LambdaE, "coupling regularization strength (-le)")
	fl.Float64Var(&f.lambdaH, "lambda-h", defaults.LambdaH, "field regularization strength (-lh)")
	fl.IntVar(&f.maxIterations, "max-iterations", defaults.MaxIterations, "maximum optimizer iterations (-m)")
	fl.Float64Var(&f.theta, "theta", defaults.Theta, "sequence reweighting threshold (-t)")
	fl.BoolVar(&f.ignoreGaps, "ignore-gaps", defaults.IgnoreGaps, "exclude gaps from the model (-g)")
	fl.DurationVar(&f.timeout, "timeout", 0, "bound on the run (default plmc.timeout)")
	fl.BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

// apply overlays explicitly set flags on req.
func (f *runFlags) apply(fl *pflag.FlagSet, req plmc.Request) plmc.Request {
	if fl.Changed("alignment") {
		req.AlignmentPath = f.alignment
	}
	if fl.Changed("focus") {
		req.FocusSequence = f.focus
	}
	if fl.Changed("output-dir") {
		req.OutputDir = f.outputDir
	}
	if fl.Changed("prefix") {
		req.OutPrefix = f.prefix
	}
	if fl.Changed("lambda-e") {
		req.Hyperparameters.LambdaE = f.lambdaE
	}
	if fl.Changed("lambda-h") {
		req.Hyperparameters.LambdaH = f.lambdaH
	}
	if fl.Changed("max-iterations") {
		req.Hyperparameters.MaxIterations = f.maxIterations
	}
	if fl.Changed("theta") {
		req.Hyperparameters.Theta = f.theta
	}
	if fl.Changed("ignore-gaps") {
		req.Hyperparameters.IgnoreGaps = f.ignoreGaps
	}
	if fl.Changed("timeout") {
		req.Timeout = f.timeout
	}
	return req
}

// applyRequestFile decodes path against #Request and overlays the fields it sets.
func applyRequestFile(req plmc.Request, path string) (plmc.Request, error) {
	res, err := cueutil.DecodeFile[requestFile](requestSchema, path, "#Request", cueutil.WithConcrete(true))
	if err != nil {
		return req, &plmc.ValidationError{Field: "request", Value: path, Reason: err.Error()}
	}
	rf := res.Value

	if rf.AlignmentPath != "" {
		req.AlignmentPath = rf.AlignmentPath
	}
	if rf.FocusSeqID != "" {
		req.FocusSequence = rf.FocusSeqID
	}
	if rf.OutputDir != "" {
		req.OutputDir = rf.OutputDir
	}
	if rf.OutPrefix != "" {
		req.OutPrefix = rf.OutPrefix
	}
	if rf.LambdaE != nil {
		req.Hyperparameters.LambdaE = *rf.LambdaE
	}
	if rf.LambdaH != nil {
		req.Hyperparameters.LambdaH = *rf.LambdaH
	}
	if rf.MaxIterations != nil {
		req.Hyperparameters.MaxIterations = *rf.MaxIterations
	}
	if rf.Theta != nil {
		req.Hyperparameters.Theta = *rf.Theta
	}
	if rf.IgnoreGaps != nil {
		req.Hyperparameters.IgnoreGaps = *rf.IgnoreGaps
	}
	if rf.Timeout != "" {
		d, err := time.ParseDuration(rf.Timeout)
		if err != nil {
			return req, &plmc.ValidationError{Field: "timeout", Value: rf.Timeout, Reason: err.Error()}
		}
		req.Timeout = d
	}
	return req, nil
}
