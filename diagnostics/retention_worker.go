package diagnostics

import (
	"context"
	"log/slog"
	"time"

	"github.com/romanqed/msgloop/internal"
	"github.com/romanqed/msgloop/internal/lifecycle"
)

// RetentionConfig controls a RetentionWorker's schedule.
type RetentionConfig struct {
	// Interval is how often the worker runs.
	Interval time.Duration
	// MaxAge is how old a row must be (by CapturedAt/FiredAt) before
	// it is eligible for deletion.
	MaxAge time.Duration
}

// RetentionWorker periodically deletes audit rows older than MaxAge,
// running the sweep on a lifecycle-guarded background goroutine.
type RetentionWorker struct {
	lc       *lifecycle.Machine
	task     internal.TimerTask
	retain   Retention
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

// NewRetentionWorker constructs a RetentionWorker. It is not started
// automatically.
func NewRetentionWorker(retain Retention, cfg RetentionConfig, log *slog.Logger) *RetentionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &RetentionWorker{
		lc:       lifecycle.New(),
		retain:   retain,
		log:      log,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	before := time.Now().Add(-w.maxAge)
	dumps, err := w.retain.CleanDumps(ctx, before)
	if err != nil {
		w.log.Error("cleaning dump rows failed", "err", err)
	}
	fires, err := w.retain.CleanFires(ctx, before)
	if err != nil {
		w.log.Error("cleaning watchdog-fire rows failed", "err", err)
	}
	w.log.Debug("retention sweep complete", "dumps_removed", dumps, "fires_removed", fires)
}

// Start begins periodic sweeps at the configured interval. Idempotent.
func (w *RetentionWorker) Start(ctx context.Context) {
	started, _ := w.lc.TryStart()
	if !started {
		return
	}
	w.task.Start(ctx, w.sweep, w.interval)
}

// Stop signals the sweep loop to exit and blocks until it has.
func (w *RetentionWorker) Stop() {
	if !w.lc.RequestExit() {
		return
	}
	<-w.task.Stop()
	w.lc.MarkExited()
}
