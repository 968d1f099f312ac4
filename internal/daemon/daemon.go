package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"logowatch/internal/config"
	"logowatch/internal/logging"
	"logowatch/internal/monitor"
	"logowatch/internal/notifications"
	"logowatch/internal/report"
	"logowatch/internal/store"
)

// Daemon coordinates scheduled detection passes and the dashboard server,
// and enforces single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	monitor  *monitor.Monitor
	reporter *report.Generator
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	lastPass passInfo
}

type passInfo struct {
	At       time.Time
	Summary  monitor.Summary
	Duration time.Duration
	Err      string
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	LastPassAt   time.Time
	LastSummary  monitor.Summary
	LastDuration time.Duration
	LastError    string
	DBPath       string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, mon *monitor.Monitor, reporter *report.Generator, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || mon == nil || reporter == nil {
		return nil, errors.New("daemon requires config, store, monitor, and reporter")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "logowatchd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    st,
		monitor:  mon,
		reporter: reporter,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the scheduler loop. The loop
// stops when the given context is canceled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another logowatch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.schedule(runCtx)
	}()

	d.logger.Info("daemon started", logging.String("lock", d.lockPath), logging.Int("interval_hours", d.cfg.Monitor.CheckIntervalHours))
	return nil
}

// Stop halts the scheduler and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// schedule runs one pass immediately and then one per interval. Passes are
// sequential; a slow pass delays the next tick rather than overlapping it.
func (d *Daemon) schedule(ctx context.Context) {
	interval := d.interval()
	d.runPass(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runPass(ctx)
		}
	}
}

// runPass executes one detection pass, regenerates the dashboard, and emits
// notifications. Errors are logged and notified, never fatal to the loop.
func (d *Daemon) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, d.passTimeout())
	defer cancel()

	start := time.Now()
	now := start.UTC()
	summary, err := d.monitor.RunCheck(passCtx, d.cfg.Monitor.Streamers, now)
	elapsed := time.Since(start)

	info := passInfo{At: now, Summary: summary, Duration: elapsed}
	if err != nil {
		info.Err = err.Error()
		d.logger.Error("pass failed", logging.Error(err), logging.Duration("elapsed", elapsed))
		if nerr := d.notifier.NotifyError(ctx, err, "check pass"); nerr != nil {
			d.logger.Warn("error notification failed", logging.Error(nerr))
		}
	}
	d.mu.Lock()
	d.lastPass = info
	d.mu.Unlock()

	if _, rerr := d.reporter.Generate(ctx); rerr != nil {
		d.logger.Error("dashboard generation failed", logging.Error(rerr))
	}

	if summary.Detected > 0 {
		d.notifyDetections(ctx, now)
	}
	if err == nil {
		if nerr := d.notifier.NotifyCheckCompleted(ctx, summary, elapsed); nerr != nil {
			d.logger.Warn("check notification failed", logging.Error(nerr))
		}
	}
}

func (d *Daemon) notifyDetections(ctx context.Context, passAt time.Time) {
	records, err := d.store.Since(ctx, passAt)
	if err != nil {
		d.logger.Warn("detection lookup failed", logging.Error(err))
		return
	}
	for _, record := range records {
		if !record.Detected {
			continue
		}
		if err := d.notifier.NotifyLogoDetected(ctx, record.Streamer, record.Confidence); err != nil {
			d.logger.Warn("detection notification failed", logging.String("streamer", record.Streamer), logging.Error(err))
		}
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	last := d.lastPass
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		LastPassAt:   last.At,
		LastSummary:  last.Summary,
		LastDuration: last.Duration,
		LastError:    last.Err,
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) interval() time.Duration {
	hours := d.cfg.Monitor.CheckIntervalHours
	if hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// passTimeout bounds one pass so a hung fetch can never block the schedule
// past the next tick.
func (d *Daemon) passTimeout() time.Duration {
	timeout := d.interval() / 2
	if timeout > 15*time.Minute {
		timeout = 15 * time.Minute
	}
	return timeout
}
