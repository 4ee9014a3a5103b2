// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/server"
	"github.com/evmodels/plmc-harness/internal/tools"

	"github.com/spf13/cobra"
)

// maxCallInput bounds tool arguments read from stdin.
const maxCallInput = server.MaxBodyBytes

func newCallCommand(app *App) *cobra.Command {
	var (
		serverURL string
		token     string
	)

	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Invoke a tool locally or on a running server",
		Long: `Invoke a tool with JSON arguments given as the second argument or on stdin.
The response is printed as JSON on stdout. A failure is printed as a JSON error
on stderr and the exit code reflects its kind (2 invalid request, 69 missing
executable, 124 timeout, 127 unknown tool, 1 failed run).

With --server the call is sent to "plmc-harness serve"; the server then
requires absolute paths.`,
		Example: `  plmc-harness call plmc_generate_model '{"alignment_path":"/data/a.a2m","focus_seq_id":"Q"}'
  echo '{"a3m_file_path":"/data/a.a3m"}' | plmc-harness call plmc_convert_a3m_to_a2m
  plmc-harness call --server http://127.0.0.1:8765 --token s3cret plmc_generate_model < args.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := callInput(cmd, args)
			if err != nil {
				return app.callFailed(cmd, err)
			}

			svc, err := app.services(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}

			var resp *tools.Response
			if serverURL != "" {
				if !cmd.Flags().Changed("token") {
					token = svc.cfg.Server.Token
				}
				resp, err = server.NewClient(serverURL, token).Call(cmd.Context(), args[0], input)
			} else {
				resp, err = svc.registry(false).Invoke(cmd.Context(), args[0], input)
			}
			if err != nil {
				return app.callFailed(cmd, err)
			}

			enc := json.NewEncoder(app.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of a running tool server")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for --server (default server.token)")
	return cmd
}

func callInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxCallInput+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCallInput {
		return nil, &plmc.ValidationError{Field: "arguments", Reason: "arguments exceed 1 MiB"}
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return data, nil
}

// callFailed prints the tool error body on stderr, the same shape remote
// callers receive, and exits with the code for its kind.
func (a *App) callFailed(cmd *cobra.Command, err error) error {
	body := tools.NewErrorResponse(err)
	var remote *server.RemoteError
	if errors.As(err, &remote) {
		body = remote.Body
	}

	enc := json.NewEncoder(a.stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: tools.ExitCodeFor(body.Kind), Err: err}
}
