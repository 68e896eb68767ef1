//go:build windows

package supervisor

import "os/exec"

// configureSysProcAttr is a no-op on Windows; there are no process groups to
// detach from in the Unix sense.
func configureSysProcAttr(_ *exec.Cmd) {}
