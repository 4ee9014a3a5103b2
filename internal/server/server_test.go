// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/evmodels/plmc-harness/internal/core/serverbase"
	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/testutil"
	"github.com/evmodels/plmc-harness/internal/tools"
)

const testToken = "s3cret"

// failingRegistry has one tool per error kind plus a panicking one.
func failingRegistry() *tools.Registry {
	r := tools.NewRegistry()
	add := func(name string, err error) {
		r.Register(tools.Tool{
			Definition: tools.Definition{Name: name, InputSchema: map[string]any{"type": "object"}},
			Handler: func(context.Context, json.RawMessage) (*tools.Response, error) {
				return nil, err
			},
		})
	}
	add("invalid", &plmc.ValidationError{Field: "theta", Reason: "out of range"})
	add("missing", &plmc.EnvironmentError{Tool: "plmc"})
	add("slow", &plmc.TimeoutError{Timeout: time.Second})
	add("broken", &plmc.ExecutionError{ExitCode: 3, Stderr: "boom"})
	add("weird", errors.New("unexpected"))
	r.Register(tools.Tool{
		Definition: tools.Definition{Name: "panics"},
		Handler: func(context.Context, json.RawMessage) (*tools.Response, error) {
			panic("handler bug")
		},
	})
	r.Register(tools.Tool{
		Definition: tools.Definition{Name: "ok"},
		Handler: func(context.Context, json.RawMessage) (*tools.Response, error) {
			return &tools.Response{Message: "fine", RunID: "r1"}, nil
		},
	})
	return r
}

func newTestServer(t *testing.T, token string, reg *tools.Registry) *httptest.Server {
	t.Helper()
	s := New(Config{Token: token}, reg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testToken, failingRegistry())
	client := NewClient(ts.URL, testToken)

	tests := []struct {
		tool       string
		wantStatus int
		wantKind   tools.ErrorKind
		wantIs     error
	}{
		{"invalid", http.StatusBadRequest, tools.KindValidation, plmc.ErrValidation},
		{"nope", http.StatusNotFound, tools.KindUnknownTool, tools.ErrUnknownTool},
		{"missing", http.StatusServiceUnavailable, tools.KindEnvironment, plmc.ErrEnvironment},
		{"slow", http.StatusGatewayTimeout, tools.KindTimeout, plmc.ErrTimeout},
		{"broken", http.StatusInternalServerError, tools.KindExecution, plmc.ErrExecution},
		{"weird", http.StatusInternalServerError, tools.KindInternal, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			t.Parallel()

			_, err := client.Call(context.Background(), tt.tool, json.RawMessage(`{}`))
			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("Call() error = %v, want RemoteError", err)
			}
			if remote.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", remote.Status, tt.wantStatus)
			}
			if remote.Body.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", remote.Body.Kind, tt.wantKind)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
		})
	}
}

func TestExecutionErrorBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "", failingRegistry())
	_, err := NewClient(ts.URL, "").Call(context.Background(), "broken", nil)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call() error = %v", err)
	}
	if remote.Body.ExitCode == nil || *remote.Body.ExitCode != 3 {
		t.Errorf("ExitCode = %v, want 3", remote.Body.ExitCode)
	}
	if remote.Body.LogText != "boom" {
		t.Errorf("LogText = %q", remote.Body.LogText)
	}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, testToken, failingRegistry())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"health is open", "/health", "", http.StatusOK},
		{"no token", "/v1/tools", "", http.StatusUnauthorized},
		{"wrong token", "/v1/tools", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "/v1/tools", "Basic " + testToken, http.StatusUnauthorized},
		{"right token", "/v1/tools", "Bearer " + testToken, http.StatusOK},
		{"unknown route", "/v2/whatever", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRecoversFromPanic(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "", failingRegistry())
	resp, err := http.Post(ts.URL+"/v1/tools/panics", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}

	// server keeps serving
	if _, err := NewClient(ts.URL, "").Call(context.Background(), "ok", nil); err != nil {
		t.Errorf("Call() after panic error = %v", err)
	}
}

func TestBodyTooLarge(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "", failingRegistry())
	body := `{"x":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	resp, err := http.Post(ts.URL+"/v1/tools/ok", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestBodyReadFailureIsBadRequest(t *testing.T) {
	t.Parallel()

	s := New(Config{}, failingRegistry())
	req := httptest.NewRequest(http.MethodPost, "/v1/tools/ok", iotest.ErrReader(errors.New("connection reset")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("body = %s, want the read error", rec.Body.String())
	}
}

func TestStartStopWithStub(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stub := testutil.PlmcStub(t, dir, testutil.PlmcOK)
	aln := testutil.MustWriteFile(t, dir, "a.a2m", ">query\nMK\n>hit\nMR\n")

	reg := tools.NewDefaultRegistry(tools.Services{
		Runner:          plmc.NewRunner(plmc.RunnerConfig{BinaryPath: stub}),
		RequireAbsolute: true,
	})
	s := New(Config{Token: testToken}, reg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer testutil.MustStop(t, s)

	if s.State() != serverbase.StateRunning {
		t.Fatalf("State() = %s", s.State())
	}

	client := NewClient(s.URL(), testToken)
	ctx := context.Background()
	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	defs, err := client.Tools(ctx)
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	if len(defs) != 2 || defs[1].Name != tools.GenerateModel {
		t.Errorf("Tools() = %+v", defs)
	}

	out := filepath.Join(dir, "out")
	args, _ := json.Marshal(map[string]any{
		"alignment_path": aln,
		"focus_seq_id":   "query",
		"output_dir":     out,
		"out_prefix":     "run1",
	})
	resp, err := client.Call(ctx, tools.GenerateModel, args)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.CouplingFilePath != filepath.Join(out, "run1.EC") {
		t.Errorf("CouplingFilePath = %q", resp.CouplingFilePath)
	}
	if resp.RunID == "" {
		t.Error("RunID is empty")
	}

	// relative paths are rejected before anything runs
	_, err = client.Call(ctx, tools.GenerateModel, json.RawMessage(`{"alignment_path":"a.a2m","focus_seq_id":"query"}`))
	if !errors.Is(err, plmc.ErrValidation) {
		t.Errorf("relative path Call() error = %v, want ErrValidation", err)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	if got := StatusFor(tools.KindInternal); got != http.StatusInternalServerError {
		t.Errorf("StatusFor(internal) = %d", got)
	}
	if got := StatusFor(tools.KindTimeout); got != http.StatusGatewayTimeout {
		t.Errorf("StatusFor(timeout) = %d", got)
	}
}
