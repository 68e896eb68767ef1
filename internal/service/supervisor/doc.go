// Package supervisor keeps the Geyser server current and running.
//
// A sequential control loop checks every artifact source, downloads and
// installs newer builds, records installed versions, and restarts the
// supervised server when installs occur; otherwise it only ensures the
// server is running. Per-source failures never abort a cycle, and termination
// signals stop the server exactly once before the daemon exits.
package supervisor
