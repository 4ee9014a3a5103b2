// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evmodels/plmc-harness/internal/core/serverbase"
	"github.com/evmodels/plmc-harness/internal/tools"
	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes bounds a tool call body.
const MaxBodyBytes = 1 << 20

type (
	// Config holds the immutable settings of a Server.
	Config struct {
		Host string
		// Port 0 picks a free port.
		Port  types.ListenPort
		Token string
		// ReadTimeout bounds reading a request; tool runs are bounded by
		// their own timeouts.
		ReadTimeout     time.Duration
		ShutdownTimeout time.Duration
		Logger          *log.Logger
	}

	// Server serves a tools.Registry over HTTP.
	Server struct {
		*serverbase.Base

		cfg      Config
		registry *tools.Registry
		router   *chi.Mux
		httpSrv  *http.Server
	}

	healthResponse struct {
		Status string   `json:"status"`
		Tools  []string `json:"tools"`
	}
)

// DefaultConfig returns a loopback configuration on an ephemeral port.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		ReadTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// New creates a Server. Call Start to begin accepting connections.
func New(cfg Config, registry *tools.Registry) *Server {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	s := &Server{
		Base:     serverbase.NewBase(),
		cfg:      cfg,
		registry: registry,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       2 * cfg.ReadTimeout,
	}
	return s
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start(ctx context.Context) error {
	err := s.Base.Start(ctx, s.cfg.Port.Address(s.cfg.Host), func(ln net.Listener) error {
		if err := s.httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cfg.Logger.Info("HTTP tool server started", "address", s.Addr(), "auth", s.cfg.Token != "")
	return nil
}

// Stop shuts the server down gracefully. In-flight tool calls get the
// configured shutdown timeout to finish.
func (s *Server) Stop() error {
	err := s.Base.Stop(s.cfg.ShutdownTimeout, s.httpSrv.Shutdown)
	if s.State() == serverbase.StateStopped {
		s.cfg.Logger.Info("HTTP tool server stopped")
	}
	return err
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleCallTool)
	})
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, tools.ErrorResponse{Error: "no route for " + r.URL.Path, Kind: tools.KindUnknownTool})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Tools: s.registry.Names()})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Definitions()})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	logger := s.cfg.Logger.With("tool", name, "request_id", middleware.GetReqID(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, tools.ErrorResponse{Error: "arguments exceed 1 MiB", Kind: tools.KindValidation})
			return
		}
		logger.Warn("could not read request body", "error", err)
		writeJSON(w, http.StatusBadRequest, tools.ErrorResponse{Error: "failed to read request body: " + err.Error(), Kind: tools.KindValidation})
		return
	}

	resp, err := s.registry.Invoke(r.Context(), name, body)
	if err != nil {
		errResp := tools.NewErrorResponse(err)
		status := StatusFor(errResp.Kind)
		if status >= http.StatusInternalServerError {
			logger.Error("tool call failed", "kind", errResp.Kind, "error", err)
		} else {
			logger.Warn("tool call rejected", "kind", errResp.Kind, "error", err)
		}
		writeJSON(w, status, errResp)
		return
	}

	logger.Info("tool call succeeded", "run_id", resp.RunID)
	writeJSON(w, http.StatusOK, resp)
}

// requireToken enforces bearer authentication when a token is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="plmc-harness"`)
				writeJSON(w, http.StatusUnauthorized, tools.ErrorResponse{Error: "unauthorized", Kind: tools.KindValidation})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(kind tools.ErrorKind) int {
	switch kind {
	case tools.KindValidation:
		return http.StatusBadRequest
	case tools.KindUnknownTool:
		return http.StatusNotFound
	case tools.KindEnvironment:
		return http.StatusServiceUnavailable
	case tools.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
