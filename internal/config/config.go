package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the supervisor daemon.
type Config struct {
	// DataDir is the directory holding artifacts, extensions and version.json.
	DataDir string `yaml:"data_dir"`
	// CheckInterval is the pause between update-check cycles while the server runs.
	CheckInterval time.Duration `yaml:"check_interval"`
	// RetryInterval is the shortened pause used when the server is not running.
	RetryInterval time.Duration `yaml:"retry_interval"`
	// StopTimeout bounds the graceful shutdown wait before the child is killed.
	StopTimeout time.Duration `yaml:"stop_timeout"`
	// RequestTimeout bounds provider API calls.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// DownloadTimeout bounds artifact downloads.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// JavaPath is the executable used to launch the server.
	JavaPath string `yaml:"java_path"`
	// JavaMinHeap is passed to the JVM as -Xms.
	JavaMinHeap string `yaml:"java_min_heap"`
	// JavaMaxHeap is passed to the JVM as -Xmx.
	JavaMaxHeap string `yaml:"java_max_heap"`
	// ProcessName is the executable name matched when reconciling a lost child handle.
	ProcessName string `yaml:"process_name"`
	// MetricsAddress enables a Prometheus /metrics listener when non-empty.
	MetricsAddress string `yaml:"metrics_addr"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "geyser-supervisor.yaml"

	// DefaultDataDir is the directory mounted into unattended deployments.
	DefaultDataDir = "/data"

	// DefaultCheckInterval is the pause between update-check cycles.
	DefaultCheckInterval = 15 * time.Minute

	// DefaultRetryInterval is used while the supervised server is down.
	DefaultRetryInterval = 30 * time.Second

	// DefaultStopTimeout is how long a stopping server may take before SIGKILL.
	DefaultStopTimeout = 8 * time.Second

	// DefaultRequestTimeout bounds provider API calls.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultDownloadTimeout bounds artifact downloads.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions os.FileMode = 0o755
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDataDirRequired is returned when the data directory is missing.
	errDataDirRequired = errors.New("data directory must be provided")
)

// Default returns a configuration populated with compiled-in defaults.
func Default() *Config {
	return &Config{
		DataDir:         DefaultDataDir,
		CheckInterval:   DefaultCheckInterval,
		RetryInterval:   DefaultRetryInterval,
		StopTimeout:     DefaultStopTimeout,
		RequestTimeout:  DefaultRequestTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		JavaPath:        "java",
		JavaMinHeap:     "128M",
		JavaMaxHeap:     "1024M",
		ProcessName:     "java",
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default path is not an error: the daemon must boot in
// an empty container, so compiled-in defaults are returned instead.
func Load(path string) (*Config, error) {
	usingDefaultPath := path == ""
	if usingDefaultPath {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if usingDefaultPath && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and backfills defaults for unset durations.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DataDir == "" {
		return errDataDirRequired
	}

	defaults := Default()

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaults.CheckInterval
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaults.StopTimeout
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaults.DownloadTimeout
	}

	if cfg.JavaPath == "" {
		cfg.JavaPath = defaults.JavaPath
	}

	if cfg.JavaMinHeap == "" {
		cfg.JavaMinHeap = defaults.JavaMinHeap
	}

	if cfg.JavaMaxHeap == "" {
		cfg.JavaMaxHeap = defaults.JavaMaxHeap
	}

	if cfg.ProcessName == "" {
		cfg.ProcessName = defaults.ProcessName
	}

	if cfg.MetricsAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.MetricsAddress); err != nil {
		return fmt.Errorf("invalid metrics address: %w", err)
	}

	return nil
}
