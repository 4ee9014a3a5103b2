// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/evmodels/plmc-harness/internal/issue"
	"github.com/evmodels/plmc-harness/internal/server"
	"github.com/evmodels/plmc-harness/internal/sshserver"
	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	host    string
	port    int
	ssh     bool
	sshPort int
	token   string
}

func newServeCommand(app *App) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP and, optionally, SSH",
		Long: `Serve the tools until interrupted.

HTTP:  GET /health, GET /v1/tools, POST /v1/tools/{name} with JSON arguments.
       When server.token is set, /v1 requires "Authorization: Bearer <token>".
SSH:   ssh -p <ssh_port> <host> <tool> '<json>' with the token as password.

Remote callers must pass absolute paths.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			sc := svc.cfg.Server
			fl := cmd.Flags()
			if fl.Changed("host") {
				sc.Host = f.host
			}
			if fl.Changed("port") {
				sc.Port = types.ListenPort(f.port)
			}
			if fl.Changed("ssh-port") {
				sc.SSHPort = types.ListenPort(f.sshPort)
			}
			if fl.Changed("token") {
				sc.Token = f.token
			}

			ctx := cmd.Context()
			reg := svc.registry(true)

			httpSrv := server.New(server.Config{
				Host:            sc.Host,
				Port:            sc.Port,
				Token:           sc.Token,
				ReadTimeout:     sc.ReadTimeout,
				ShutdownTimeout: sc.ShutdownTimeout,
				Logger:          app.logger(svc.cfg, "http-server"),
			}, reg)

			var sshSrv *sshserver.Server
			if f.ssh {
				sshSrv, err = sshserver.New(sshserver.Config{
					Host:            sshserver.HostAddress(sc.Host),
					Port:            sc.SSHPort,
					Token:           sshserver.TokenValue(sc.Token),
					HostKeyPath:     types.FilesystemPath(sc.HostKeyPath),
					ShutdownTimeout: sc.ShutdownTimeout,
					Logger:          app.logger(svc.cfg, "ssh-server"),
				}, reg)
				if err != nil {
					return app.fail(cmd, serveError(err, "ssh", sc.SSHPort.Address(sc.Host)))
				}
			}

			if err := httpSrv.Start(ctx); err != nil {
				return app.fail(cmd, serveError(err, "http", sc.Port.Address(sc.Host)))
			}
			defer func() { _ = httpSrv.Stop() }()
			fmt.Fprintf(app.stdout, "%s HTTP tools at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(httpSrv.URL()))

			var sshErrs <-chan error
			if sshSrv != nil {
				if err := sshSrv.Start(ctx); err != nil {
					return app.fail(cmd, serveError(err, "ssh", sc.SSHPort.Address(sc.Host)))
				}
				defer func() { _ = sshSrv.Stop() }()
				sshErrs = sshSrv.Err()
				fmt.Fprintf(app.stdout, "%s SSH tools at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(sshSrv.Addr()))
			}

			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-httpSrv.Err():
				if ok && err != nil {
					return app.fail(cmd, serveError(err, "http", httpSrv.Addr()))
				}
			case err, ok := <-sshErrs:
				if ok && err != nil {
					return app.fail(cmd, serveError(err, "ssh", sshSrv.Addr()))
				}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.host, "host", "", "interface to bind (default server.host)")
	fl.IntVar(&f.port, "port", 0, "HTTP port, 0 picks a free one (default server.port)")
	fl.BoolVar(&f.ssh, "ssh", false, "also serve tools over SSH")
	fl.IntVar(&f.sshPort, "ssh-port", 0, "SSH port (default server.ssh_port)")
	fl.StringVar(&f.token, "token", "", "shared secret for both surfaces (default server.token)")
	return cmd
}

func serveError(err error, surface, addr string) error {
	ctx := issue.NewErrorContext().
		WithOperation(operationServe).
		WithResource(surface + "://" + addr).
		WithSuggestion("Pick another port with --port / --ssh-port or server.port / server.ssh_port").
		Wrap(err)
	if errors.Is(err, sshserver.ErrInvalidTokenValue) {
		ctx = ctx.WithSuggestion("Set a token with --token, server.token or PLMC_SERVER_TOKEN")
	}
	return ctx.BuildError()
}
