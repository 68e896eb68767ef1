package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/geyser-supervisor/internal/logger"
)

// Check result labels.
const (
	CheckResultUpdate      = "update"
	CheckResultCurrent     = "current"
	CheckResultUnreachable = "unreachable"
	CheckResultMalformed   = "malformed"
)

// Install result labels.
const (
	InstallResultSuccess = "success"
	InstallResultFailed  = "failed"
)

// readHeaderTimeout bounds slow-header clients on the metrics listener.
const readHeaderTimeout = 5 * time.Second

// Recorder exposes control-loop counters as Prometheus metrics.
// All methods are safe on a nil receiver so callers need no guards when
// metrics are disabled.
type Recorder struct {
	registry  *prom.Registry
	checks    *prom.CounterVec
	installs  *prom.CounterVec
	restarts  prom.Counter
	processUp prom.Gauge
}

// NewRecorder constructs and registers the supervisor metrics on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		checks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "geyser_supervisor",
			Name:      "update_checks_total",
			Help:      "Update checks by component and result",
		}, []string{"component", "result"}),
		installs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "geyser_supervisor",
			Name:      "installs_total",
			Help:      "Artifact install attempts by component and result",
		}, []string{"component", "result"}),
		restarts: prom.NewCounter(prom.CounterOpts{
			Namespace: "geyser_supervisor",
			Name:      "restarts_total",
			Help:      "Supervised process restarts triggered by installs",
		}),
		processUp: prom.NewGauge(prom.GaugeOpts{
			Namespace: "geyser_supervisor",
			Name:      "process_up",
			Help:      "Whether the supervised process was running after the last cycle",
		}),
	}

	r.registry.MustRegister(r.checks, r.installs, r.restarts, r.processUp)
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return r
}

// IncCheck counts one update check outcome.
func (r *Recorder) IncCheck(component, result string) {
	if r == nil || r.checks == nil {
		return
	}

	r.checks.WithLabelValues(component, result).Inc()
}

// IncInstall counts one install attempt outcome.
func (r *Recorder) IncInstall(component, result string) {
	if r == nil || r.installs == nil {
		return
	}

	r.installs.WithLabelValues(component, result).Inc()
}

// IncRestart counts one install-triggered restart of the supervised process.
func (r *Recorder) IncRestart() {
	if r == nil || r.restarts == nil {
		return
	}

	r.restarts.Inc()
}

// SetProcessUp records whether the supervised process is currently running.
func (r *Recorder) SetProcessUp(up bool) {
	if r == nil || r.processUp == nil {
		return
	}

	if up {
		r.processUp.Set(1)
	} else {
		r.processUp.Set(0)
	}
}

// Serve exposes /metrics on the provided address until the context is
// canceled. It blocks; callers run it on its own goroutine.
func (r *Recorder) Serve(ctx context.Context, address string) error {
	if r == nil || address == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), readHeaderTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
		close(done)
	}()

	logger.InfoKV(ctx, "Metrics listener started", "address", address)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done

	return nil
}
