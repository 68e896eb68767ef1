package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestRecorder_NilSafe ensures a disabled recorder accepts every call.
func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder

	require.NotPanics(t, func() {
		r.IncCheck("geyser_standalone", CheckResultUpdate)
		r.IncInstall("geyser_standalone", InstallResultSuccess)
		r.IncRestart()
		r.SetProcessUp(true)
	})
}

// TestRecorder_Counters verifies counters register and accumulate.
func TestRecorder_Counters(t *testing.T) {
	t.Parallel()

	r := NewRecorder()

	r.IncCheck("geyser_standalone", CheckResultUpdate)
	r.IncCheck("geyser_standalone", CheckResultUpdate)
	r.IncInstall("geyser_standalone", InstallResultFailed)
	r.IncRestart()

	require.InDelta(t, 2.0,
		testutil.ToFloat64(r.checks.WithLabelValues("geyser_standalone", CheckResultUpdate)), 0)
	require.InDelta(t, 1.0,
		testutil.ToFloat64(r.installs.WithLabelValues("geyser_standalone", InstallResultFailed)), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(r.restarts), 0)

	r.SetProcessUp(true)
	require.InDelta(t, 1.0, testutil.ToFloat64(r.processUp), 0)

	r.SetProcessUp(false)
	require.InDelta(t, 0.0, testutil.ToFloat64(r.processUp), 0)
}
