// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/tools"
)

// ErrRemote is the sentinel error wrapped by RemoteError for kinds without a
// plmc counterpart.
var ErrRemote = errors.New("remote tool call failed")

type (
	// Client calls a Server over HTTP.
	Client struct {
		baseURL string
		token   string
		http    *http.Client
	}

	// RemoteError is a non-2xx response decoded from the server.
	RemoteError struct {
		Status int
		Body   tools.ErrorResponse
	}
)

// NewClient creates a Client for baseURL, e.g. "http://127.0.0.1:8765".
// Calls are bounded by their context only.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
	}
}

// Health returns nil when the server answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	var out healthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// Tools lists the server's tool definitions.
func (c *Client) Tools(ctx context.Context) ([]tools.Definition, error) {
	var out struct {
		Tools []tools.Definition `json:"tools"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tools", nil, &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

// Call invokes the named tool with JSON arguments.
func (c *Client) Call(ctx context.Context, name string, args json.RawMessage) (*tools.Response, error) {
	var out tools.Response
	if err := c.do(ctx, http.MethodPost, "/v1/tools/"+name, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		remote := &RemoteError{Status: resp.StatusCode}
		if json.Unmarshal(data, &remote.Body) != nil || remote.Body.Kind == "" {
			remote.Body = tools.ErrorResponse{Error: strings.TrimSpace(string(data)), Kind: tools.KindInternal}
		}
		return remote
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Error implements the error interface for RemoteError.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Body.Kind, e.Body.Error)
}

// Unwrap maps the remote kind back onto the local sentinel so callers can
// use errors.Is the same way for local and remote calls.
func (e *RemoteError) Unwrap() error {
	switch e.Body.Kind {
	case tools.KindValidation:
		return plmc.ErrValidation
	case tools.KindUnknownTool:
		return tools.ErrUnknownTool
	case tools.KindEnvironment:
		return plmc.ErrEnvironment
	case tools.KindTimeout:
		return plmc.ErrTimeout
	case tools.KindExecution:
		return plmc.ErrExecution
	default:
		return ErrRemote
	}
}
