// Package metrics exports control-loop counters via Prometheus.
//
// The Recorder is nil-safe: when the metrics listener is disabled, callers
// hold a nil *Recorder and every method is a no-op.
package metrics
