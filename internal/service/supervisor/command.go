package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/geyser-supervisor/internal/config"
	"github.com/oshokin/geyser-supervisor/internal/downloader"
	"github.com/oshokin/geyser-supervisor/internal/logger"
	"github.com/oshokin/geyser-supervisor/internal/metrics"
	"github.com/oshokin/geyser-supervisor/internal/repository/versions"
	"github.com/oshokin/geyser-supervisor/internal/source"
)

// VersionFilename stores installed component versions inside the data directory.
const VersionFilename = "version.json"

// permissionProbeFilename is touched at startup to prove the data directory is writable.
const permissionProbeFilename = ".permission-probe"

// Options are inputs accepted by the supervisor entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// DataDir overrides the configured data directory.
	DataDir string
	// CheckInterval overrides the configured pause between cycles.
	CheckInterval time.Duration
	// MetricsAddress overrides the configured metrics listener address.
	MetricsAddress string
}

// Run starts the supervisor and blocks until the context is canceled or an
// unrecoverable fault occurs. It is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "geyser-supervisor")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	applyOverrides(cfg, opts)

	if err = config.Validate(cfg); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	// Startup invariant, not a per-cycle concern: an unwritable data
	// directory is a deployment misconfiguration and retrying cannot fix it.
	if err = ensureWritable(cfg.DataDir); err != nil {
		return fmt.Errorf(
			"data directory %s is not writable; fix the host mount permissions "+
				"(e.g. chown -R 1000:1000 on the mounted directory): %w",
			cfg.DataDir, err)
	}

	var recorder *metrics.Recorder

	if cfg.MetricsAddress != "" {
		recorder = metrics.NewRecorder()

		go func() {
			if serveErr := recorder.Serve(ctx, cfg.MetricsAddress); serveErr != nil {
				logger.ErrorKV(ctx, "Metrics listener failed", "error", serveErr)
			}
		}()
	}

	apiClient := &http.Client{Timeout: cfg.RequestTimeout}
	downloadClient := &http.Client{Timeout: cfg.DownloadTimeout}

	l := &loop{
		cfg:        cfg,
		store:      versions.NewFileRepository(filepath.Join(cfg.DataDir, VersionFilename)),
		sources:    source.Defaults(cfg.DataDir, apiClient),
		downloader: downloader.New(downloadClient),
		process:    NewProcess(cfg),
		recorder:   recorder,
	}

	logger.InfoKV(ctx, "Supervisor started",
		"data_dir", cfg.DataDir,
		"check_interval", cfg.CheckInterval.String(),
		"retry_interval", cfg.RetryInterval.String())

	return l.run(ctx)
}

// applyOverrides lets CLI flags win over file values.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	if opts.CheckInterval > 0 {
		cfg.CheckInterval = opts.CheckInterval
	}

	if opts.MetricsAddress != "" {
		cfg.MetricsAddress = opts.MetricsAddress
	}
}

// ensureWritable creates the data directory if needed and proves it is
// writable by touching and removing a probe file.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return err
	}

	probe := filepath.Join(dir, permissionProbeFilename)
	if err := os.WriteFile(probe, []byte("probe"), config.DefaultFilePermissions); err != nil {
		return err
	}

	return os.Remove(probe)
}
