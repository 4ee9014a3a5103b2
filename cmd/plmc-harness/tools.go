// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newToolsCommand(app *App) *cobra.Command {
	var (
		asMarkdown bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the remote-callable tools",
		Long: `List the tools served by "plmc-harness serve" and accepted by "plmc-harness call",
with their argument schemas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			reg := svc.registry(false)

			switch {
			case asJSON:
				enc := json.NewEncoder(app.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"tools": reg.Definitions()})
			case asMarkdown:
				out, err := glamour.Render(reg.Markdown(), glamourStyle(app.stdout))
				if err != nil {
					return app.fail(cmd, err)
				}
				fmt.Fprint(app.stdout, out)
				return nil
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render("Available tools:"))
			for _, def := range reg.Definitions() {
				summary, _, _ := strings.Cut(def.Description, "\n")
				fmt.Fprintf(app.stdout, "  %s  %s\n", CmdStyle.Render(def.Name), SubtitleStyle.Render(summary))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "render tool descriptions and arguments as markdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tool definitions as JSON")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")
	return cmd
}
