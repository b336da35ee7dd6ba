//go:build unix

// Package osutil holds platform specific process helpers.
package osutil

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup runs cmd in its own process group so that helpers it
// spawns, such as git's remote transports, can be stopped together.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SetProcessGroupKill makes context cancellation kill the whole process
// group. Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
