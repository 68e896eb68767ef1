// Package versions implements persistence for installed component versions.
//
// The FileRepository stores a flat JSON object mapping component keys to
// opaque version strings in version.json and exposes a Repository interface
// the control loop depends on. Absence is a valid state, not an error.
package versions
