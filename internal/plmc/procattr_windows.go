// SPDX-License-Identifier: MPL-2.0

//go:build windows

package plmc

import "os/exec"

// Windows has no process groups reachable through os/exec; only the direct
// child is killed.
func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	return c.Process.Kill()
}
