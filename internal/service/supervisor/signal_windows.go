//go:build windows

package supervisor

import "os"

// terminate kills the process outright; Windows has no graceful TERM signal.
func terminate(process *os.Process) error {
	return process.Kill()
}
