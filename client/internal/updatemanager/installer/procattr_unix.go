//go:build !windows

package installer

import (
	"os/exec"
	"syscall"
)

const updaterBinary = "updater"

// setDetachedProcAttr configures the process to run in a new session,
// making it independent of the parent process.
func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
