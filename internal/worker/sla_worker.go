package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/service"
)

// Sweeper runs one SLA sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (service.Report, error)
}

// Locker grants a short lease so a single replica sweeps per tick.
type Locker interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, func(context.Context) error, error)
}

// SLAWorker schedules SLA sweeps.
type SLAWorker struct {
	cron    *cron.Cron
	sweeper Sweeper
	locker  Locker
	lockKey string
	lockTTL time.Duration
	owner   string
	logger  *zap.Logger
}

// NewSLAWorker parses the schedule and registers the sweep job. A nil locker sweeps on every tick.
func NewSLAWorker(cfg config.SLAConfig, sweeper Sweeper, locker Locker, logger *zap.Logger) (*SLAWorker, error) {
	w := &SLAWorker{
		sweeper: sweeper,
		locker:  locker,
		lockKey: cfg.SweepLockKey,
		lockTTL: cfg.LockTTL(),
		owner:   uuid.NewString(),
		logger:  logger.Named("sla_worker"),
	}

	cl := cronLogger{log: w.logger.Sugar()}
	w.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := w.cron.AddFunc(cfg.SweepSchedule, func() { w.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid SLA sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	return w, nil
}

// Start begins scheduling in a background goroutine.
func (w *SLAWorker) Start() {
	w.logger.Info("SLA worker started")
	w.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (w *SLAWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info("SLA worker stopped")
	case <-ctx.Done():
		w.logger.Warn("SLA worker stop timed out")
	}
}

// RunOnce performs a single tick. It reports whether a sweep ran.
func (w *SLAWorker) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.lockTTL)
	defer cancel()

	release, ok := w.acquire(ctx)
	if !ok {
		return false
	}
	if release != nil {
		defer func() {
			if err := release(context.Background()); err != nil {
				w.logger.Warn("release sweep lock failed", zap.Error(err))
			}
		}()
	}

	report, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("SLA sweep failed", zap.Error(err))
		return true
	}
	w.logger.Info("SLA sweep finished",
		zap.Int("violations", len(report.Violations)),
		zap.Int("newly_breached", report.NewlyBreached),
		zap.Int("skipped", report.Skipped))
	return true
}

// acquire returns false only when another replica holds the lease. Lock
// errors still sweep, since breach marking is idempotent.
func (w *SLAWorker) acquire(ctx context.Context) (func(context.Context) error, bool) {
	if w.locker == nil {
		return nil, true
	}
	held, release, err := w.locker.TryLock(ctx, w.lockKey, w.owner, w.lockTTL)
	switch {
	case errors.Is(err, persistence.ErrRedisDisabled):
		return nil, true
	case err != nil:
		w.logger.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		return nil, true
	case !held:
		w.logger.Debug("sweep lock held elsewhere, skipping tick")
		return nil, false
	}
	return release, true
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
