// SPDX-License-Identifier: MPL-2.0

package alignment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evmodels/plmc-harness/internal/plmc"
	"github.com/evmodels/plmc-harness/internal/testutil"
)

func TestConverterConvert(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	conv := NewConverter(ConverterConfig{
		ScriptPath: testutil.ReformatStub(t, t.TempDir()),
		OutputDir:  filepath.Join(dir, "outputs"),
	})
	in := testutil.MustWriteFile(t, dir, "BLAT.a3m", ">BLAT\nM.KV-L\n>hit\nMAKVCL\n")

	res, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if want := filepath.Join(dir, "outputs", "BLAT.a2m"); res.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, want)
	}
	if got := testutil.MustReadFile(t, res.OutputPath); got != ">BLAT\nMKVL\n>hit\nMKVL\n" {
		t.Errorf("output = %q", got)
	}
	if res.Stats.GapsRemoved != 2 || res.Stats.Sequences != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.LogText == "" {
		t.Error("reformat.pl output not captured")
	}
}

func TestConverterOutputPath(t *testing.T) {
	t.Parallel()

	conv := NewConverter(ConverterConfig{OutputDir: "/out"})
	tests := []struct {
		req  ConvertRequest
		want string
	}{
		{ConvertRequest{InputPath: "/in/x.a3m"}, "/out/x.a2m"},
		{ConvertRequest{InputPath: "/in/x.a3m", OutPrefix: "uniref100"}, "/out/uniref100.a2m"},
		{ConvertRequest{InputPath: "/in/x.a3m", OutputPath: "/elsewhere/y.a2m", OutPrefix: "ignored"}, "/elsewhere/y.a2m"},
	}
	for _, tt := range tests {
		if got := conv.OutputPath(tt.req); got != tt.want {
			t.Errorf("OutputPath(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestConverterErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := testutil.MustWriteFile(t, dir, "x.a3m", ">q\nMK\n")
	noPath := plmc.Locator{LookPath: func(string) (string, error) { return "", os.ErrNotExist }}

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(ConverterConfig{OutputDir: dir, Locator: noPath})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: filepath.Join(dir, "nope.a3m")})
		if !errors.Is(err, plmc.ErrValidation) {
			t.Errorf("Convert() = %v, want ErrValidation", err)
		}
	})

	t.Run("script not found", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(ConverterConfig{OutputDir: dir, EnvDir: filepath.Join(dir, "env"), Locator: noPath})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in})
		if !errors.Is(err, plmc.ErrEnvironment) {
			t.Errorf("Convert() = %v, want ErrEnvironment", err)
		}
	})

	t.Run("script fails", func(t *testing.T) {
		t.Parallel()
		script := testutil.WriteStub(t, t.TempDir(), "reformat.pl", "#!/bin/sh\necho 'bad a3m' >&2\nexit 1\n")
		conv := NewConverter(ConverterConfig{OutputDir: dir, ScriptPath: script})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in, OutPrefix: "fails"})
		var ee *plmc.ExecutionError
		if !errors.As(err, &ee) || ee.ExitCode != 1 {
			t.Errorf("Convert() = %v, want ExecutionError with exit 1", err)
		}
	})

	t.Run("script writes nothing", func(t *testing.T) {
		t.Parallel()
		script := testutil.WriteStub(t, t.TempDir(), "reformat.pl", "#!/bin/sh\nexit 0\n")
		conv := NewConverter(ConverterConfig{OutputDir: dir, ScriptPath: script})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in, OutPrefix: "silent"})
		var ee *plmc.ExecutionError
		if !errors.As(err, &ee) || len(ee.Missing) != 1 {
			t.Errorf("Convert() = %v, want ExecutionError with a missing output", err)
		}
	})

	t.Run("script writes a ragged alignment", func(t *testing.T) {
		t.Parallel()
		script := testutil.WriteStub(t, t.TempDir(), "reformat.pl", "#!/bin/sh\nprintf '>q\\nMKV\\n>h\\nM\\n' > \"$4\"\n")
		conv := NewConverter(ConverterConfig{OutputDir: dir, ScriptPath: script})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in, OutPrefix: "ragged"})
		var ve *plmc.ValidationError
		if !errors.As(err, &ve) || ve.Field != "a3m_file_path" {
			t.Errorf("Convert() = %v, want ValidationError on a3m_file_path", err)
		}
	})

	t.Run("prefix with separator", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(ConverterConfig{OutputDir: dir})
		_, err := conv.Convert(context.Background(), ConvertRequest{InputPath: in, OutPrefix: "../x"})
		if !errors.Is(err, plmc.ErrValidation) {
			t.Errorf("Convert() = %v, want ErrValidation", err)
		}
	})
}

func TestConverterLocateScriptEnvDir(t *testing.T) {
	t.Parallel()

	env := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(env, "scripts"), 0o755)
	want := testutil.WriteStub(t, filepath.Join(env, "scripts"), ReformatScript, "#!/bin/sh\n")

	conv := NewConverter(ConverterConfig{
		EnvDir:  env,
		Locator: plmc.Locator{LookPath: func(string) (string, error) { return "", os.ErrNotExist }},
	})
	got, err := conv.LocateScript()
	if err != nil || got != want {
		t.Errorf("LocateScript() = %q, %v; want %q", got, err, want)
	}
}
