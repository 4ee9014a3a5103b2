// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Locator finds executables. An explicit path is used as is (and must be
// executable); otherwise candidates are tried in order, then PATH.
type Locator struct {
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Find resolves the executable called name.
func (l Locator) Find(name, explicit string, candidates ...string) (string, error) {
	if explicit != "" {
		if err := checkExecutable(explicit); err != nil {
			return "", &EnvironmentError{Tool: name, Searched: []string{explicit}, Cause: err}
		}
		return explicit, nil
	}

	searched := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		searched = append(searched, c)
		if checkExecutable(c) == nil {
			return c, nil
		}
	}

	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	searched = append(searched, "$PATH")
	path, err := lookPath(name)
	if err != nil {
		return "", &EnvironmentError{Tool: name, Searched: searched, Cause: err}
	}
	return path, nil
}

// PlmcCandidates lists the conventional install locations under a plmc
// checkout and an environment prefix.
func PlmcCandidates(plmcDir, envDir string) []string {
	var out []string
	if plmcDir != "" {
		out = append(out, filepath.Join(plmcDir, "bin", "plmc"))
	}
	if envDir != "" {
		out = append(out, filepath.Join(envDir, "bin", "plmc"))
	}
	return out
}

var errNotExecutable = errors.New("not an executable file")

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s: %w", path, errNotExecutable)
	}
	return nil
}
