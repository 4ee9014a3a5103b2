// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/evmodels/plmc-harness/internal/core/serverbase"
	"github.com/evmodels/plmc-harness/internal/tools"
	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

// MaxStdinBytes bounds tool arguments read from stdin.
const MaxStdinBytes = 1 << 20

// Server serves a tools.Registry over SSH. A Server is single-use.
type Server struct {
	*serverbase.Base

	cfg      Config
	registry *tools.Registry
	srv      *ssh.Server
}

// New validates cfg and creates a Server. Call Start to accept connections.
func New(cfg Config, registry *tools.Registry) (*Server, error) {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		Base:     serverbase.NewBase(),
		cfg:      cfg,
		registry: registry,
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Port.Address(cfg.Host.String())),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(s.commandMiddleware()),
	}
	if cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(cfg.HostKeyPath.String()))
	}
	srv, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	s.srv = srv
	return s, nil
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start(ctx context.Context) error {
	err := s.Base.Start(ctx, s.cfg.Port.Address(s.cfg.Host.String()), func(ln net.Listener) error {
		if err := s.srv.Serve(ln); !errors.Is(err, ssh.ErrServerClosed) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cfg.Logger.Info("SSH tool server started", "address", s.Addr())
	return nil
}

// Stop closes the listener and waits for open sessions up to the shutdown
// timeout.
func (s *Server) Stop() error {
	err := s.Base.Stop(s.cfg.ShutdownTimeout, s.srv.Shutdown)
	if s.State() == serverbase.StateStopped {
		s.cfg.Logger.Info("SSH tool server stopped")
	}
	return err
}

// passwordHandler accepts the configured token as password.
func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Token)) != 1 {
		s.cfg.Logger.Warn("rejected SSH authentication", "user", ctx.User(), "remote", ctx.RemoteAddr())
		return false
	}
	return true
}

// publicKeyHandler rejects every key; only token authentication is offered.
func (s *Server) publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return false
}

func (s *Server) commandMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			code := s.dispatch(sess.Context(), sess.RawCommand(), sess, sess, sess.Stderr())
			_ = sess.Exit(int(code))
		}
	}
}

// splitCommand separates the tool name from its JSON arguments. The
// arguments are kept verbatim since OpenSSH forwards them unquoted; one
// pair of enclosing single quotes is removed.
func splitCommand(raw string) (name, payload string) {
	name, payload, _ = strings.Cut(strings.TrimSpace(raw), " ")
	payload = strings.TrimSpace(payload)
	if len(payload) >= 2 && payload[0] == '\'' && payload[len(payload)-1] == '\'' {
		payload = payload[1 : len(payload)-1]
	}
	return name, payload
}

// dispatch runs one session command and returns its exit status. Results
// go to stdout as JSON; failures go to stderr as a tools.ErrorResponse.
func (s *Server) dispatch(ctx context.Context, raw string, stdin io.Reader, stdout, stderr io.Writer) types.ExitCode {
	name, inline := splitCommand(raw)
	if name == "" || name == "list" {
		writeJSON(stdout, map[string]any{"tools": s.registry.Definitions()})
		return 0
	}

	logger := s.cfg.Logger.With("tool", name)

	payload := []byte(inline)
	if inline == "" {
		data, err := io.ReadAll(io.LimitReader(stdin, MaxStdinBytes+1))
		switch {
		case err != nil:
			writeJSON(stderr, tools.ErrorResponse{Error: "failed to read arguments: " + err.Error(), Kind: tools.KindValidation})
			return tools.ExitUsage
		case len(data) > MaxStdinBytes:
			writeJSON(stderr, tools.ErrorResponse{Error: "arguments exceed 1 MiB", Kind: tools.KindValidation})
			return tools.ExitUsage
		}
		payload = data
	}

	resp, err := s.registry.Invoke(ctx, name, payload)
	if err != nil {
		errResp := tools.NewErrorResponse(err)
		logger.Warn("tool call failed", "kind", errResp.Kind, "error", err)
		writeJSON(stderr, errResp)
		return tools.ExitCodeFor(errResp.Kind)
	}
	logger.Info("tool call succeeded", "run_id", resp.RunID)
	writeJSON(stdout, resp)
	return 0
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
