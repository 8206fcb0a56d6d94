// Package procexec runs external programs under a wall-clock budget.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process has been killed.
const DefaultWaitDelay = 2 * time.Second

// Command describes a program invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string
	Stdin   []byte
	Timeout time.Duration
}

// Result is the outcome of a Run. Err is set only when the process could not
// be started or did not exit normally for a reason other than a non-zero
// exit code, timeout or cancellation.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Cancelled bool
	Duration  time.Duration
	Err       error
}

// Success reports whether the process exited with code zero.
func (r Result) Success() bool {
	return r.Err == nil && !r.TimedOut && !r.Cancelled && r.ExitCode == 0
}

// Run starts the command and waits for it. The process and everything it
// spawned are killed when the timeout elapses or ctx is cancelled. stdout
// and stderr are collected concurrently so a chatty child cannot block on a
// full pipe.
func Run(ctx context.Context, c Command) Result {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	cmd.WaitDelay = DefaultWaitDelay
	killGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		res.Cancelled = true
	case runCtx.Err() != nil:
		res.TimedOut = true
	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			res.Err = err
		}
	}
	return res
}
