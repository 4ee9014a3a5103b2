// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/evmodels/plmc-harness/internal/alignment"

	"github.com/spf13/cobra"
)

func newConvertCommand(app *App) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "convert <in.a3m> [out.a2m]",
		Short: "Convert an A3M alignment to A2M and remove query-gap columns",
		Long: `Run "reformat.pl a3m a2m" on the input, then drop every column in which the
query (first) sequence has a gap. Without an output path the result is written
to <paths.output_dir>/<prefix>.a2m, where prefix defaults to the input stem.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			req := alignment.ConvertRequest{InputPath: args[0], OutPrefix: prefix}
			if len(args) == 2 {
				req.OutputPath = args[1]
			}
			res, err := svc.converter.Convert(cmd.Context(), req)
			if err != nil {
				return app.fail(cmd, err)
			}

			fmt.Fprintf(app.stdout, "%s converted %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(res.InputPath))
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("output:"), res.OutputPath)
			printStats(app.stdout, res.Stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "output file stem when no output path is given")
	return cmd
}

func newCleanGapsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clean-gaps <in.a2m> <out.a2m>",
		Short: "Remove query-gap columns from an A2M alignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := alignment.CleanFile(args[0], args[1])
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "%s cleaned %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(args[1]))
			printStats(app.stdout, stats)
			return nil
		},
	}
}

func printStats(w io.Writer, s alignment.Stats) {
	fmt.Fprintf(w, "  %s %d (query %s)\n", SubtitleStyle.Render("sequences:"), s.Sequences, s.Query)
	fmt.Fprintf(w, "  %s %d -> %d (%d gap columns removed)\n", SubtitleStyle.Render("length:   "), s.OriginalLength, s.NewLength, s.GapsRemoved)
}
