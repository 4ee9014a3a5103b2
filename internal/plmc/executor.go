// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/evmodels/plmc-harness/pkg/types"
)

// DefaultKillGrace bounds how long Execute waits for output pipes to close
// after the process group has been killed.
const DefaultKillGrace = 5 * time.Second

type (
	// Execution is the raw outcome of one process.
	Execution struct {
		Command  Command
		ExitCode types.ExitCode
		Stdout   string
		Stderr   string
		Started  time.Time
		Duration time.Duration
	}

	// Executor runs exactly one process per call.
	Executor interface {
		Execute(ctx context.Context, cmd Command) (*Execution, error)
	}

	// ProcessExecutor runs commands as host processes in their own process
	// group, with no stdin.
	ProcessExecutor struct {
		// KillGrace overrides DefaultKillGrace when positive.
		KillGrace time.Duration
		// Env replaces the inherited environment when non-nil.
		Env []string
	}
)

// Execute runs cmd and waits for it. A non-zero exit is not an error here;
// Interpret decides what it means. Errors are returned only when the process
// could not be started (*EnvironmentError) or ctx ended first (*TimeoutError
// on deadline, *ExecutionError wrapping context.Canceled otherwise). In the
// latter cases the partial Execution is returned too.
func (e *ProcessExecutor) Execute(ctx context.Context, cmd Command) (*Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, interrupted(cmd, err, &Execution{Command: cmd})
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = nil
	c.Stdout = &stdout
	c.Stderr = &stderr
	if e.Env != nil {
		c.Env = e.Env
	}
	setProcessGroup(c)
	c.Cancel = func() error { return killProcessGroup(c) }
	c.WaitDelay = e.killGrace()

	started := time.Now()
	if err := c.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, interrupted(cmd, ctxErr, &Execution{Command: cmd})
		}
		return nil, &EnvironmentError{Tool: cmd.Path, Cause: err}
	}
	waitErr := c.Wait()

	res := &Execution{
		Command:  cmd,
		ExitCode: exitCodeOf(c, waitErr),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Started:  started,
		Duration: time.Since(started),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, interrupted(cmd, ctxErr, res)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// Pipe copy failures and WaitDelay expiry after a normal exit.
		return res, &ExecutionError{
			Command:  cmd.String(),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Cause:    waitErr,
		}
	}
	return res, nil
}

// interrupted reports a run that ctx ended, whether or not plmc started.
func interrupted(cmd Command, ctxErr error, res *Execution) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &TimeoutError{
			Command: cmd.String(),
			Elapsed: res.Duration,
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
		}
	}
	return &ExecutionError{
		Command:  cmd.String(),
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Cause:    ctxErr,
	}
}

func (e *ProcessExecutor) killGrace() time.Duration {
	if e.KillGrace > 0 {
		return e.KillGrace
	}
	return DefaultKillGrace
}

func exitCodeOf(c *exec.Cmd, waitErr error) types.ExitCode {
	if c.ProcessState != nil {
		return types.ExitCode(c.ProcessState.ExitCode())
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return types.ExitCode(exitErr.ExitCode())
	}
	return types.ExitCodeSignaled
}
