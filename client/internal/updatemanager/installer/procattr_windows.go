package installer

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

const updaterBinary = "updater.exe"

// setDetachedProcAttr configures the process to run detached from the parent,
// making it independent of the parent process.
func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}
}
