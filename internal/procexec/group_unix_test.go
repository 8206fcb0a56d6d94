//go:build unix

package procexec

import (
	"context"
	"strings"
	"testing"
	"time"
)

// A shell running a compound command forks its children instead of
// exec'ing them. If only the shell were killed, the orphaned sleep would
// hold the output pipes open until WaitDelay expires.
func TestRun_KillsChildProcesses(t *testing.T) {
	sh := requireSh(t)
	budget := 300 * time.Millisecond
	script := "sleep 10; echo done"

	t.Run("timeout", func(t *testing.T) {
		res := Run(context.Background(), Command{Path: sh, Args: []string{"-c", script}, Timeout: budget})
		if !res.TimedOut {
			t.Fatalf("TimedOut = false, result = %+v", res)
		}
		if res.Duration >= budget+DefaultWaitDelay {
			t.Errorf("Duration = %v, child outlived the shell", res.Duration)
		}
		if strings.Contains(res.Stdout, "done") {
			t.Errorf("Stdout = %q, script ran to completion", res.Stdout)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(budget, cancel)

		res := Run(ctx, Command{Path: sh, Args: []string{"-c", script}, Timeout: 5 * time.Second})
		if !res.Cancelled {
			t.Fatalf("Cancelled = false, result = %+v", res)
		}
		if res.Duration >= budget+DefaultWaitDelay {
			t.Errorf("Duration = %v, child outlived the shell", res.Duration)
		}
	})
}
