// Package source implements the per-provider update checks.
//
// Each Source owns one component's version-comparison semantics: BuildSource
// compares strictly increasing integer build numbers, ReleaseSource treats
// tags as opaque and updates on any difference. A check returns either a
// fully populated Descriptor, nil for "already current", or an error the
// control loop contains to that source for the cycle.
package source
