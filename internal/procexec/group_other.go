//go:build !unix

package procexec

import "os/exec"

func killGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
