package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pushdispatch/internal/service"
)

var ErrJobRunning = errors.New("job is already running")

type Poller interface {
	Poll(ctx context.Context) (service.PollResult, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

type Config struct {
	PollSchedule  string
	SweepSchedule string
	Location      *time.Location
}

// Scheduler runs the reminder poll and the retention sweep on cron schedules.
// Each job runs at most once at a time, whether started by cron or manually.
type Scheduler struct {
	cron    *cron.Cron
	poller  Poller
	sweeper Sweeper
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	pollMu  sync.Mutex
	sweepMu sync.Mutex
}

func New(poller Poller, sweeper Sweeper, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{l: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		poller:  poller,
		sweeper: sweeper,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := c.AddFunc(cfg.PollSchedule, s.pollJob); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid poll schedule %q: %w", cfg.PollSchedule, err)
	}
	if _, err := c.AddFunc(cfg.SweepSchedule, s.sweepJob); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	logger.Info("Scheduler configured",
		zap.String("poll_schedule", cfg.PollSchedule),
		zap.String("sweep_schedule", cfg.SweepSchedule),
		zap.String("location", loc.String()),
	)
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop prevents new runs, cancels running jobs and waits for them to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) RunPollOnce(ctx context.Context) (service.PollResult, error) {
	if !s.pollMu.TryLock() {
		return service.PollResult{}, ErrJobRunning
	}
	defer s.pollMu.Unlock()
	return s.poller.Poll(ctx)
}

func (s *Scheduler) RunSweepOnce(ctx context.Context) (service.SweepResult, error) {
	if !s.sweepMu.TryLock() {
		return service.SweepResult{}, ErrJobRunning
	}
	defer s.sweepMu.Unlock()
	return s.sweeper.Sweep(ctx)
}

func (s *Scheduler) pollJob() {
	if _, err := s.RunPollOnce(s.ctx); err != nil {
		s.logJobError("reminder_poll", err)
	}
}

func (s *Scheduler) sweepJob() {
	if _, err := s.RunSweepOnce(s.ctx); err != nil {
		s.logJobError("retention_sweep", err)
	}
}

func (s *Scheduler) logJobError(job string, err error) {
	if errors.Is(err, ErrJobRunning) {
		s.logger.Warn("Skipped scheduled run, previous run still in progress", zap.String("job", job))
		return
	}
	s.logger.Error("Scheduled job failed", zap.String("job", job), zap.Error(err))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
