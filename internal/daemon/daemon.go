// Package daemon ties the watcher, pipeline, and queue store into a
// single-instance background process guarded by a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"parafile/internal/config"
	"parafile/internal/logging"
	"parafile/internal/pipeline"
	"parafile/internal/queue"
	"parafile/internal/watcher"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	pipeline *pipeline.Manager

	lockPath string
	pidPath  string
	lock     *flock.Flock

	watch *watcher.Watcher

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Organizing   bool
	WatchedDir   string
	QueueDBPath  string
	LockFilePath string
	Queue        queue.HealthSummary
}

// LockPath returns the single-instance lock file location for the configuration.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "parafile.lock")
}

// Probe reports whether another process currently holds the daemon lock.
func Probe(cfg *config.Config) bool {
	lock := flock.New(LockPath(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, mgr *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := LockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pipeline: mgr,
		lockPath: lockPath,
		pidPath:  filepath.Join(cfg.Paths.LogDir, "parafile.pid"),
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock, writes the PID file, and launches
// the pipeline workers and the folder watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another parafile instance is already running")
	}

	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if !d.cfg.EnableOrganization {
		d.logger.Info("organization disabled; files are renamed in place")
	}

	if err := d.pipeline.Start(runCtx); err != nil {
		d.teardown()
		return fmt.Errorf("start pipeline: %w", err)
	}

	w, err := watcher.New(
		d.cfg.Paths.WatchedFolder,
		time.Duration(d.cfg.Workflow.DebounceMS)*time.Millisecond,
		d.pipeline.Intake,
		d.logger,
	)
	if err != nil {
		d.pipeline.Stop()
		d.teardown()
		return err
	}
	if err := w.Start(runCtx); err != nil {
		_ = w.Close()
		d.pipeline.Stop()
		d.teardown()
		return err
	}
	d.watch = w

	d.running.Store(true)
	d.logger.Info("parafile daemon started",
		logging.String("dir", d.cfg.Paths.WatchedFolder),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop halts intake first, then drains the pipeline, then releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.watch != nil {
		if err := d.watch.Close(); err != nil {
			d.logger.Warn("failed to close watcher", logging.Error(err))
		}
		d.watch = nil
	}
	d.pipeline.Stop()
	d.teardown()
	d.running.Store(false)
	d.logger.Info("parafile daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime and queue state.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Organizing:   d.cfg.EnableOrganization,
		WatchedDir:   d.cfg.Paths.WatchedFolder,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        health,
	}, nil
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
