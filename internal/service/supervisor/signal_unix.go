//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// terminate requests a graceful shutdown via SIGTERM.
func terminate(process *os.Process) error {
	return process.Signal(syscall.SIGTERM)
}
