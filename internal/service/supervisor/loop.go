package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/geyser-supervisor/internal/config"
	"github.com/oshokin/geyser-supervisor/internal/downloader"
	"github.com/oshokin/geyser-supervisor/internal/logger"
	"github.com/oshokin/geyser-supervisor/internal/metrics"
	"github.com/oshokin/geyser-supervisor/internal/repository/versions"
	"github.com/oshokin/geyser-supervisor/internal/source"
)

// loop drives the check/download/supervise cycle. All fields are set once by
// Run and only the loop's single goroutine touches them afterwards.
type loop struct {
	// cfg provides intervals and process parameters.
	cfg *config.Config
	// store tracks installed versions per component.
	store versions.Repository
	// sources are checked sequentially every cycle.
	sources []source.Source
	// downloader fetches, verifies and installs artifacts.
	downloader *downloader.Downloader
	// process owns the supervised server lifecycle.
	process *Process
	// recorder counts cycle outcomes; nil when metrics are disabled.
	recorder *metrics.Recorder
}

// run executes cycles until the context is canceled or an unrecoverable
// fault occurs. The supervised server is stopped exactly once on every exit
// path, with a fresh bounded context so a canceled run still shuts it down.
func (l *loop) run(ctx context.Context) error {
	defer func() {
		stopCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx), 2*l.cfg.StopTimeout)
		defer cancel()

		if err := l.process.Stop(stopCtx); err != nil {
			logger.ErrorKV(stopCtx, "Final server stop failed", "error", err)
		}
	}()

	// First cycle runs immediately so a fresh deployment installs and
	// starts without waiting out a full interval.
	if err := l.cycle(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(l.nextInterval(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Shutdown signal received, stopping server and exiting")
			return nil
		case <-timer.C:
			if err := l.cycle(ctx); err != nil {
				return err
			}

			timer.Reset(l.nextInterval(ctx))
		}
	}
}

// cycle checks every source, installs what is newer, and reconciles the
// server process. Per-source failures are contained to that source; the only
// error returned is an unwritable version record.
func (l *loop) cycle(ctx context.Context) error {
	logger.Info(ctx, "Starting update check cycle")

	var installed bool

	for _, src := range l.sources {
		if ctx.Err() != nil {
			return nil
		}

		componentInstalled, err := l.checkAndInstall(ctx, src)
		if err != nil {
			return err
		}

		if componentInstalled {
			installed = true
		}
	}

	// A canceled context aborts downloads mid-flight; leave the restart
	// decision to the next run instead of flapping the server on shutdown.
	if ctx.Err() != nil {
		return nil
	}

	switch {
	case installed:
		logger.Info(ctx, "Updates were installed, restarting server to apply them")

		if err := l.process.Stop(ctx); err != nil {
			logger.ErrorKV(ctx, "Server stop failed", "error", err)
		}

		l.recorder.IncRestart()

		if err := l.process.Start(ctx); err != nil {
			logger.ErrorKV(ctx, "Server start failed", "error", err)
		}
	case !l.process.IsRunning(ctx):
		logger.Info(ctx, "Server is not running, starting it")

		if err := l.process.Start(ctx); err != nil {
			logger.ErrorKV(ctx, "Server start failed", "error", err)
		}
	default:
		logger.Debug(ctx, "No updates found, server keeps running")
	}

	return nil
}

// checkAndInstall runs one source's check and, when a newer version exists,
// the download+record pair. It reports whether an install completed; the only
// error returned is a failed version-record write, which is unrecoverable.
//
//nolint:cyclop // The outcome classification is a flat switch; splitting it would obscure the flow.
func (l *loop) checkAndInstall(ctx context.Context, src source.Source) (bool, error) {
	component := src.Component()
	localVersion := l.store.Get(ctx, component)

	desc, err := src.CheckLatest(ctx, localVersion)

	switch {
	case errors.Is(err, source.ErrMalformedResponse):
		// Distinct from a transport failure: the provider answered, but not
		// with what we expect. Both degrade to "no update this cycle".
		logger.WarnKV(ctx, "Provider response is missing expected fields",
			"component", component, "error", err)
		l.recorder.IncCheck(component, metrics.CheckResultMalformed)

		return false, nil
	case err != nil:
		logger.WarnKV(ctx, "Provider is unreachable",
			"component", component, "error", err)
		l.recorder.IncCheck(component, metrics.CheckResultUnreachable)

		return false, nil
	case desc == nil:
		logger.DebugKV(ctx, "Component is up to date",
			"component", component, "version", localVersion)
		l.recorder.IncCheck(component, metrics.CheckResultCurrent)

		return false, nil
	}

	l.recorder.IncCheck(component, metrics.CheckResultUpdate)
	logger.InfoKV(ctx, "New version found",
		"component", component, "local", localVersion, "remote", desc.Version)

	if err = l.downloader.FetchVerifyInstall(ctx, desc); err != nil {
		logger.ErrorKV(ctx, "Artifact install failed",
			"component", component, "error", err)
		l.recorder.IncInstall(component, metrics.InstallResultFailed)

		return false, nil
	}

	// The record advances only after the artifact is in place, so a crash
	// in between costs at most a redundant re-download next cycle.
	if err = l.store.Set(ctx, component, desc.Version); err != nil {
		l.recorder.IncInstall(component, metrics.InstallResultFailed)

		// An unwritable version record would re-install forever; treat it
		// as the unrecoverable fault it is.
		return true, fmt.Errorf("record version for %s: %w", component, err)
	}

	l.recorder.IncInstall(component, metrics.InstallResultSuccess)

	return true, nil
}

// nextInterval picks the pause before the next cycle: the regular check
// interval while the server runs, a short retry while it is down.
func (l *loop) nextInterval(ctx context.Context) time.Duration {
	running := l.process.IsRunning(ctx)
	l.recorder.SetProcessUp(running)

	if running {
		return l.cfg.CheckInterval
	}

	logger.InfoKV(ctx, "Server is not running, will retry after a short delay",
		"delay", l.cfg.RetryInterval.String())

	return l.cfg.RetryInterval
}
