//go:build windows

// =============================================================================
// pkg/player/sysproc_windows.go - Player Process Attributes
// =============================================================================
package player

import (
	"os/exec"
	"syscall"
)

// detach starts the player in a new process group so console Ctrl+C events
// are not delivered to it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
