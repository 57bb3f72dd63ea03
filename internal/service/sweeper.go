package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/metrics"
	"pushdispatch/pkg/trace"
)

const (
	collectionNotifications = "notifications"
	collectionReminders     = "scheduled_notifications"
)

type SweeperConfig struct {
	Retention   time.Duration
	BatchSize   int
	Concurrency int
	// SweepFailed also deletes unsent records whose error_at is past the cutoff.
	SweepFailed bool
}

type SweepResult struct {
	Cutoff        time.Time
	Notifications int
	Reminders     int
	Errors        int
}

func (r SweepResult) Deleted() int {
	return r.Notifications + r.Reminders
}

// Sweeper purges terminal records older than the retention window.
type Sweeper struct {
	notifications SweepStore
	reminders     SweepStore
	cfg           SweeperConfig
	clock         Clock
	logger        *zap.Logger
}

func NewSweeper(notifications, reminders SweepStore, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Sweeper{
		notifications: notifications,
		reminders:     reminders,
		cfg:           cfg,
		clock:         time.Now,
		logger:        logger,
	}
}

func (s *Sweeper) WithClock(clock Clock) *Sweeper {
	s.clock = clock
	return s
}

type sweepTarget struct {
	collection string
	store      SweepStore
	id         string
}

// Sweep selects expired records from both collections and deletes them
// concurrently. A failing selection aborts the run; failed deletes are counted
// and logged.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, s.logger)

	cutoff := s.clock().Add(-s.cfg.Retention)
	result := SweepResult{Cutoff: cutoff}

	var targets []sweepTarget
	for _, c := range []struct {
		name  string
		store SweepStore
	}{
		{collectionNotifications, s.notifications},
		{collectionReminders, s.reminders},
	} {
		ids, err := c.store.ListSentBefore(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			log.Error("Failed to select expired records", zap.String("collection", c.name), zap.Error(err))
			return result, fmt.Errorf("list expired %s: %w", c.name, err)
		}

		if s.cfg.SweepFailed {
			failed, err := c.store.ListFailedBefore(ctx, cutoff, s.cfg.BatchSize)
			if err != nil {
				log.Error("Failed to select expired failed records", zap.String("collection", c.name), zap.Error(err))
				return result, fmt.Errorf("list expired failed %s: %w", c.name, err)
			}
			ids = append(ids, failed...)
		}

		for _, id := range ids {
			targets = append(targets, sweepTarget{collection: c.name, store: c.store, id: id})
		}
	}

	var notifications, reminders, errs atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if err := t.store.Delete(ctx, t.id); err != nil {
				errs.Add(1)
				log.Warn("Failed to delete expired record",
					zap.String("collection", t.collection),
					zap.String("id", t.id),
					zap.Error(err),
				)
				return nil
			}
			if t.collection == collectionNotifications {
				notifications.Add(1)
			} else {
				reminders.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Notifications = int(notifications.Load())
	result.Reminders = int(reminders.Load())
	result.Errors = int(errs.Load())

	metrics.AddRetentionDeleted(collectionNotifications, result.Notifications)
	metrics.AddRetentionDeleted(collectionReminders, result.Reminders)

	log.Info("Retention sweep completed",
		zap.Time("cutoff", cutoff),
		zap.Int("deleted", result.Deleted()),
		zap.Int("notifications", result.Notifications),
		zap.Int("reminders", result.Reminders),
		zap.Int("errors", result.Errors),
	)

	return result, nil
}
