//go:build !windows

// =============================================================================
// pkg/player/sysproc_unix.go - Player Process Attributes
// =============================================================================
package player

import (
	"os/exec"
	"syscall"
)

// detach puts the player in its own process group so terminal signals aimed
// at us do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
