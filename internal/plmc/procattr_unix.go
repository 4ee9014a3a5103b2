// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package plmc

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the command as leader of a new process group, so a
// kill reaches plmc's children (and a launcher's) as well.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	if err := syscall.Kill(-c.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return c.Process.Kill()
	}
	return nil
}
