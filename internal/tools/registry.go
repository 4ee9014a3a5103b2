// SPDX-License-Identifier: MPL-2.0

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/evmodels/plmc-harness/internal/plmc"

	"golang.org/x/exp/maps"
)

// ErrUnknownTool is the sentinel error wrapped by UnknownToolError.
var ErrUnknownTool = errors.New("unknown tool")

type (
	// Definition describes a tool to remote callers.
	Definition struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"input_schema"`
	}

	// Handler runs a tool with its raw JSON arguments.
	Handler func(ctx context.Context, args json.RawMessage) (*Response, error)

	// Tool is a registered definition and its handler.
	Tool struct {
		Definition
		Handler Handler
	}

	// Registry maps tool names to tools.
	Registry struct {
		tools map[string]Tool
	}

	// UnknownToolError is returned by Invoke for unregistered names.
	UnknownToolError struct {
		Name string
	}
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Names returns the registered tool names in lexical order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.tools)
	slices.Sort(names)
	return names
}

// Definitions returns every definition ordered by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Invoke runs the named tool. Empty args are treated as {}.
func (r *Registry) Invoke(ctx context.Context, name string, args []byte) (*Response, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	return t.Handler(ctx, args)
}

// Markdown renders the catalog for terminal display.
func (r *Registry) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Tools\n")
	for _, def := range r.Definitions() {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n\n", def.Name, def.Description)
		sb.WriteString("| argument | type | required | description |\n|---|---|---|---|\n")
		props, _ := def.InputSchema["properties"].(map[string]any)
		required, _ := def.InputSchema["required"].([]string)
		args := maps.Keys(props)
		slices.Sort(args)
		for _, arg := range args {
			p, _ := props[arg].(map[string]any)
			req := ""
			if slices.Contains(required, arg) {
				req = "yes"
			}
			fmt.Fprintf(&sb, "| `%s` | %v | %s | %v |\n", arg, p["type"], req, p["description"])
		}
	}
	return sb.String()
}

// Error implements the error interface for UnknownToolError.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Unwrap returns ErrUnknownTool for errors.Is() compatibility.
func (e *UnknownToolError) Unwrap() error { return ErrUnknownTool }

// decodeArgs strictly decodes args into v. Decoding failures are reported as
// validation errors so that remote callers get a client error.
func decodeArgs(args json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &plmc.ValidationError{Field: "arguments", Reason: err.Error()}
	}
	if dec.More() {
		return &plmc.ValidationError{Field: "arguments", Reason: "trailing data after JSON object"}
	}
	return nil
}
