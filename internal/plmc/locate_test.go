// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evmodels/plmc-harness/internal/testutil"
)

func TestLocatorFind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plmcDir := filepath.Join(dir, "repo", "plmc")
	envDir := filepath.Join(dir, "env")
	testutil.MustMkdirAll(t, filepath.Join(plmcDir, "bin"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(envDir, "bin"), 0o755)
	inEnv := testutil.WriteStub(t, filepath.Join(envDir, "bin"), "plmc", "#!/bin/sh\n")
	notExec := testutil.MustWriteFile(t, dir, "plain", "x")

	noPath := Locator{LookPath: func(string) (string, error) { return "", os.ErrNotExist }}
	onPath := Locator{LookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil }}

	tests := []struct {
		name     string
		locator  Locator
		explicit string
		want     string
		wantErr  bool
	}{
		{name: "explicit wins", locator: noPath, explicit: inEnv, want: inEnv},
		{name: "explicit not executable", locator: onPath, explicit: notExec, wantErr: true},
		{name: "explicit missing does not fall back", locator: onPath, explicit: filepath.Join(dir, "nope"), wantErr: true},
		{name: "plmc dir empty, env dir used", locator: noPath, want: inEnv},
		{name: "path fallback", locator: onPath, want: "/usr/bin/plmc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			candidates := PlmcCandidates(plmcDir, envDir)
			if tt.name == "path fallback" {
				candidates = nil
			}
			got, err := tt.locator.Find("plmc", tt.explicit, candidates...)
			if tt.wantErr {
				if !errors.Is(err, ErrEnvironment) {
					t.Fatalf("Find() = %q, %v; want ErrEnvironment", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Find() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLocatorFindReportsSearchedPaths(t *testing.T) {
	t.Parallel()

	l := Locator{LookPath: func(string) (string, error) { return "", os.ErrNotExist }}
	_, err := l.Find("plmc", "", PlmcCandidates("/nope/plmc", "")...)

	var envErr *EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("Find() = %v, want *EnvironmentError", err)
	}
	want := []string{"/nope/plmc/bin/plmc", "$PATH"}
	if len(envErr.Searched) != 2 || envErr.Searched[0] != want[0] || envErr.Searched[1] != want[1] {
		t.Errorf("Searched = %v, want %v", envErr.Searched, want)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("cause should be preserved")
	}
}
