//go:build windows

// =============================================================================
// pkg/orchestrator/addr_windows.go - Port Conflict Detection
// =============================================================================
package orchestrator

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

// isAddrInUse reports whether a bind failed because the port is taken.
// Winsock reports WSAEADDRINUSE rather than the syscall package constant.
func isAddrInUse(err error) bool {
	return errors.Is(err, windows.WSAEADDRINUSE) || errors.Is(err, syscall.EADDRINUSE)
}
