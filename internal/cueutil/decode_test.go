// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `
#Request: {
	alignment_path: string & !=""
	focus_seq_id:   string & !=""
	theta?:         number & >=0 & <=1
	launcher?: [...string]
}
`

type testRequest struct {
	AlignmentPath string   `json:"alignment_path"`
	FocusSeqID    string   `json:"focus_seq_id"`
	Theta         *float64 `json:"theta,omitempty"`
	Launcher      []string `json:"launcher,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "minimal",
			data: `alignment_path: "/data/a.a2m", focus_seq_id: "query"`,
		},
		{
			name: "with optional fields",
			data: `alignment_path: "/data/a.a2m", focus_seq_id: "query", theta: 0.8, launcher: ["conda", "run"]`,
		},
		{
			name:    "theta out of range",
			data:    `alignment_path: "/data/a.a2m", focus_seq_id: "query", theta: 1.5`,
			wantErr: "theta",
		},
		{
			name:    "unknown field",
			data:    `alignment_path: "/data/a.a2m", focus_seq_id: "query", lambda: 3`,
			wantErr: "lambda",
		},
		{
			name:    "missing required field",
			data:    `alignment_path: "/data/a.a2m"`,
			wantErr: "focus_seq_id",
		},
		{
			name:    "syntax error",
			data:    `alignment_path: `,
			wantErr: "request.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Decode[testRequest]([]byte(testSchema), []byte(tt.data), "#Request", WithFilename("request.cue"))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Decode() expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Decode() error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if res.Value.AlignmentPath != "/data/a.a2m" || res.Value.FocusSeqID != "query" {
				t.Errorf("Decode() = %+v", res.Value)
			}
		})
	}
}

func TestDecodeNonConcrete(t *testing.T) {
	t.Parallel()

	schema := `#Opt: { name: string | *"uniref100", count?: int }`
	res, err := Decode[struct {
		Name string `json:"name"`
	}]([]byte(schema), []byte(`{}`), "#Opt", WithConcrete(false))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if res.Value.Name != "uniref100" {
		t.Errorf("Name = %q, want schema default", res.Value.Name)
	}
}

func TestDecodeFileSizeLimit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "request.cue")
	if err := os.WriteFile(path, []byte(`alignment_path: "/a", focus_seq_id: "q"`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := DecodeFile[testRequest]([]byte(testSchema), path, "#Request"); err != nil {
		t.Fatalf("DecodeFile() error: %v", err)
	}

	_, err := DecodeFile[testRequest]([]byte(testSchema), path, "#Request", WithMaxFileSize(8))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("DecodeFile() error = %v, want size error", err)
	}
}

func TestDecodeMissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := Decode[testRequest]([]byte(testSchema), []byte(`{}`), "#Nope")
	if err == nil || !strings.Contains(err.Error(), "#Nope") {
		t.Errorf("Decode() error = %v, want missing definition", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"plmc"}, "plmc"},
		{[]string{"plmc", "launcher", "2"}, "plmc.launcher[2]"},
		{[]string{"0", "x"}, "0.x"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
