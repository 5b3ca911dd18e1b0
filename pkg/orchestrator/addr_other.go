//go:build !windows

// =============================================================================
// pkg/orchestrator/addr_other.go - Port Conflict Detection
// =============================================================================
package orchestrator

import (
	"errors"
	"syscall"
)

// isAddrInUse reports whether a bind failed because the port is taken.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
