package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/geyser-supervisor/internal/config"
	"github.com/oshokin/geyser-supervisor/internal/logger"
	"github.com/oshokin/geyser-supervisor/internal/source"
)

// errArtifactMissing is returned when the server jar has not been installed yet.
var errArtifactMissing = errors.New("server artifact not found")

// reconcilePollInterval paces liveness polling while stopping a rediscovered process.
const reconcilePollInterval = 200 * time.Millisecond

// Process owns the lifecycle of the single supervised server process.
//
// The in-memory child handle can be lost when the supervisor itself restarts
// while the server survives; Stop and IsRunning reconcile that case through a
// process-table search by executable name.
type Process struct {
	// cfg provides the launch command, working directory and stop timeout.
	cfg *config.Config
	// jarPath is the server artifact required to start.
	jarPath string
	// mu protects the child handle.
	mu sync.Mutex
	// cmd is the live child, nil when not running or unknown.
	cmd *exec.Cmd
	// waitCh is closed once the child has been reaped.
	waitCh chan struct{}
}

// NewProcess creates a supervisor for the server process described by cfg.
func NewProcess(cfg *config.Config) *Process {
	return &Process{
		cfg:     cfg,
		jarPath: filepath.Join(cfg.DataDir, source.GeyserStandaloneFilename),
	}
}

// Start launches the server unless it is already running.
// It fails when the server artifact is absent; the caller retries next cycle.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		logger.Debug(ctx, "Server is already running, not starting another one")
		return nil
	}

	if _, err := os.Stat(p.jarPath); err != nil {
		return fmt.Errorf("%s: %w", p.jarPath, errArtifactMissing)
	}

	//nolint:gosec // The command comes from validated configuration, not user input.
	cmd := exec.Command(p.cfg.JavaPath,
		"-Xms"+p.cfg.JavaMinHeap,
		"-Xmx"+p.cfg.JavaMaxHeap,
		"-jar", p.jarPath)

	// The server discovers its config and extensions relative to the data directory.
	cmd.Dir = p.cfg.DataDir

	// Server output belongs in the supervisor's own streams so container
	// logs show both.
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Detach into its own process group so terminal signals aimed at the
	// supervisor do not reach the child directly.
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start server process: %w", err)
	}

	waitCh := make(chan struct{})
	p.cmd = cmd
	p.waitCh = waitCh

	go func() {
		_ = cmd.Wait()
		close(waitCh)
	}()

	logger.InfoKV(ctx, "Server started", "pid", cmd.Process.Pid, "jar", p.jarPath)

	return nil
}

// Stop terminates the server gracefully, escalating to a kill after the
// configured timeout. Stopping an already-stopped server is a no-op.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()

	if p.runningLocked() {
		cmd, waitCh := p.cmd, p.waitCh
		p.cmd, p.waitCh = nil, nil
		p.mu.Unlock()

		return p.stopChild(ctx, cmd, waitCh)
	}

	p.mu.Unlock()

	// The handle is gone; the server may still be alive from a previous
	// supervisor run.
	return p.stopDiscovered(ctx)
}

// IsRunning reports whether the server is alive, checking the owned handle
// first and falling back to a process-table search when the handle is gone.
func (p *Process) IsRunning(ctx context.Context) bool {
	p.mu.Lock()
	running := p.runningLocked()
	p.mu.Unlock()

	if running {
		return true
	}

	pids, err := p.findByName()
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect process table", "error", err)
		return false
	}

	return len(pids) > 0
}

// runningLocked reports child liveness and clears a reaped handle.
// Callers must hold mu.
func (p *Process) runningLocked() bool {
	if p.cmd == nil {
		return false
	}

	select {
	case <-p.waitCh:
		p.cmd = nil
		p.waitCh = nil

		return false
	default:
		return true
	}
}

// stopChild terminates the owned child: graceful signal, bounded wait, kill.
func (p *Process) stopChild(ctx context.Context, cmd *exec.Cmd, waitCh chan struct{}) error {
	logger.InfoKV(ctx, "Stopping server", "pid", cmd.Process.Pid)

	if err := terminate(cmd.Process); err != nil {
		// Most likely the child exited between the liveness check and the
		// signal; killing below settles either way.
		logger.DebugKV(ctx, "Graceful termination signal failed", "error", err)
	}

	timer := time.NewTimer(p.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-waitCh:
		logger.Info(ctx, "Server stopped gracefully")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	logger.WarnKV(ctx, "Server did not stop in time, killing it",
		"pid", cmd.Process.Pid, "timeout", p.cfg.StopTimeout.String())

	if err := cmd.Process.Kill(); err != nil {
		logger.DebugKV(ctx, "Kill failed", "error", err)
	}

	<-waitCh

	return nil
}

// stopDiscovered terminates processes found by the name-pattern fallback.
// Finding none is the normal already-stopped case, not an error.
func (p *Process) stopDiscovered(ctx context.Context) error {
	pids, err := p.findByName()
	if err != nil {
		return fmt.Errorf("inspect process table: %w", err)
	}

	if len(pids) == 0 {
		logger.Debug(ctx, "Server is not running")
		return nil
	}

	logger.InfoKV(ctx, "Stopping rediscovered server processes", "pids", pids)

	for _, pid := range pids {
		process, findErr := os.FindProcess(pid)
		if findErr != nil {
			continue
		}

		if termErr := terminate(process); termErr != nil {
			logger.DebugKV(ctx, "Graceful termination signal failed",
				"pid", pid, "error", termErr)
		}
	}

	// There is no wait handle for rediscovered pids; poll until they exit
	// or the stop timeout forces a kill.
	deadline := time.Now().Add(p.cfg.StopTimeout)
	for time.Now().Before(deadline) {
		remaining, findErr := p.findByName()
		if findErr == nil && len(remaining) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return p.killRemaining(ctx)
		case <-time.After(reconcilePollInterval):
		}
	}

	return p.killRemaining(ctx)
}

// killRemaining force-kills any still-matching processes.
func (p *Process) killRemaining(ctx context.Context) error {
	remaining, err := p.findByName()
	if err != nil {
		return fmt.Errorf("inspect process table: %w", err)
	}

	for _, pid := range remaining {
		process, findErr := os.FindProcess(pid)
		if findErr != nil {
			continue
		}

		logger.WarnKV(ctx, "Killing server process", "pid", pid)

		_ = process.Kill()
	}

	return nil
}

// findByName returns pids whose executable matches the configured name,
// excluding the supervisor itself.
func (p *Process) findByName() ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != p.cfg.ProcessName {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}
