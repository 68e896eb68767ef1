package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/geyser-supervisor/internal/logger"
	"github.com/oshokin/geyser-supervisor/internal/service/supervisor"
	"github.com/oshokin/geyser-supervisor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// dataDir overrides the configured data directory.
	dataDir string

	// checkInterval overrides the configured pause between update checks.
	checkInterval time.Duration

	// metricsAddress overrides the configured metrics listener address.
	metricsAddress string

	// logLevel selects the minimum severity written to the log.
	logLevel string

	// rootCmd represents the base command that runs the update-and-supervise daemon.
	rootCmd = &cobra.Command{
		Use:   "geyser-supervisor",
		Short: "Keep a Geyser server updated and running",
		Long: "Unattended daemon that polls upstream providers for new Geyser builds " +
			"and extension releases, installs them into the data directory and " +
			"supervises the server process, restarting it after every install.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &supervisor.Options{
				ConfigPath:     configPath,
				DataDir:        dataDir,
				CheckInterval:  checkInterval,
				MetricsAddress: metricsAddress,
			}

			return supervisor.Run(ctx, options)
		},
	}
)

// Execute runs the geyser-supervisor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the server, extensions and version record")
	rootCmd.Flags().DurationVar(&checkInterval, "interval", 0, "pause between update checks")
	rootCmd.Flags().StringVar(&metricsAddress, "metrics-addr", "", "address for the Prometheus metrics listener")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
}
