package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pushdispatch/internal/model"
	"pushdispatch/internal/repository"
	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/metrics"
	"pushdispatch/pkg/push"
	"pushdispatch/pkg/trace"
)

const reminderClaimHandler = "reminder"

type PollerConfig struct {
	LatenessWindow time.Duration
	BatchSize      int
	Concurrency    int
	SendTimeout    time.Duration
}

// PollResult summarizes one poll cycle. Outcomes is indexed like the selected
// reminders.
type PollResult struct {
	Processed int
	Sent      int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

// Poller sends reminders that became due within the lateness window.
type Poller struct {
	reminders ReminderStore
	users     UserStore
	sender    push.Sender
	claimer   Claimer
	cfg       PollerConfig
	clock     Clock
	logger    *zap.Logger
}

// NewPoller builds a poller. claimer may be nil, in which case the sent flag is
// the only duplicate guard.
func NewPoller(reminders ReminderStore, users UserStore, sender push.Sender, claimer Claimer, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Poller{
		reminders: reminders,
		users:     users,
		sender:    sender,
		claimer:   claimer,
		cfg:       cfg,
		clock:     time.Now,
		logger:    logger,
	}
}

func (p *Poller) WithClock(clock Clock) *Poller {
	p.clock = clock
	return p
}

// Poll runs one cycle. Only a failing selection query fails the cycle; every
// per-reminder problem is captured in its Outcome.
func (p *Poller) Poll(ctx context.Context) (PollResult, error) {
	ctx = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, p.logger)
	start := time.Now()

	now := p.clock()
	from := now.Add(-p.cfg.LatenessWindow)

	due, err := p.reminders.ListDue(ctx, now, from, p.cfg.BatchSize)
	if err != nil {
		log.Error("Failed to query due reminders", zap.Error(err))
		return PollResult{}, fmt.Errorf("list due reminders: %w", err)
	}

	outcomes := make([]Outcome, len(due))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, rem := range due {
		g.Go(func() error {
			outcomes[i] = p.process(ctx, log, now, rem)
			return nil
		})
	}
	_ = g.Wait()

	result := PollResult{Processed: len(due), Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSent:
			result.Sent++
		case StatusFailed:
			result.Failed++
		case StatusSkipped:
			result.Skipped++
		}
	}

	metrics.RecordPollCycle(len(due), time.Since(start))
	log.Info("Reminder poll cycle completed",
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

func (p *Poller) process(ctx context.Context, log *zap.Logger, now time.Time, rem *model.Reminder) Outcome {
	log = log.With(zap.String("reminder_id", rem.ID), zap.String("user_id", rem.UserID))

	if p.claimer != nil && !p.claimer.AcquireOnce(ctx, reminderClaimHandler, rem.ID) {
		metrics.RecordPushOutcome(metrics.KindReminder, string(StatusSkipped))
		return Outcome{ID: rem.ID, Status: StatusSkipped}
	}

	token, err := p.resolveToken(ctx, rem.UserID)
	if err != nil {
		return p.fail(ctx, log, now, rem.ID, err)
	}

	start := time.Now()
	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.SendTimeout)
	receipt, err := p.sender.Send(sendCtx, push.Message{
		Token: token,
		Title: rem.Title,
		Body:  rem.Body,
		Data:  rem.Data,
		Hints: push.ReminderHints(),
	})
	cancel()
	metrics.RecordPushLatency(metrics.KindReminder, time.Since(start))
	if err != nil {
		return p.fail(ctx, log, now, rem.ID, err)
	}

	applied, err := p.reminders.MarkSent(context.WithoutCancel(ctx), rem.ID, now, receipt)
	if err != nil {
		log.Error("Failed to record reminder delivery",
			zap.String("receipt", receipt),
			zap.Error(err),
		)
		metrics.RecordPushOutcome(metrics.KindReminder, string(StatusFailed))
		metrics.RecordPushFailure(metrics.KindReminder, "write_back")
		return Outcome{ID: rem.ID, Status: StatusFailed, Receipt: receipt, Err: err}
	}

	if !applied {
		log.Warn("Reminder was already marked sent by another cycle", zap.String("receipt", receipt))
	}

	metrics.RecordPushOutcome(metrics.KindReminder, string(StatusSent))
	log.Info("Reminder sent", zap.String("receipt", receipt))
	return Outcome{ID: rem.ID, Status: StatusSent, Receipt: receipt}
}

func (p *Poller) resolveToken(ctx context.Context, userID string) (string, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrRecipientNotFound
		}
		return "", err
	}
	token := user.Token()
	if token == "" {
		return "", ErrTokenUnavailable
	}
	return token, nil
}

// fail stores cause on the reminder and releases the claim so a later tick
// inside the lateness window may pick the reminder up again. Both writes
// outlive a cancelled cycle.
func (p *Poller) fail(ctx context.Context, log *zap.Logger, now time.Time, id string, cause error) Outcome {
	ctx = context.WithoutCancel(ctx)
	reason := failureReason(cause)
	metrics.RecordPushOutcome(metrics.KindReminder, string(StatusFailed))
	metrics.RecordPushFailure(metrics.KindReminder, reason)
	log.Warn("Reminder not delivered",
		zap.String("reason", reason),
		zap.Error(cause),
	)

	if p.claimer != nil {
		defer func() {
			if err := p.claimer.Release(ctx, reminderClaimHandler, id); err != nil {
				log.Warn("Failed to release reminder claim", zap.Error(err))
			}
		}()
	}

	if err := p.reminders.MarkFailed(ctx, id, now, cause.Error()); err != nil {
		log.Error("Failed to record reminder failure", zap.Error(err))
		return Outcome{ID: id, Status: StatusFailed, Err: errors.Join(cause, err)}
	}

	return Outcome{ID: id, Status: StatusFailed, Err: cause}
}
