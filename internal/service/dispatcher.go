package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pushdispatch/internal/model"
	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/metrics"
	"pushdispatch/pkg/push"
)

// Dispatcher sends a newly created notification once and records the outcome
// on the notification row.
type Dispatcher struct {
	store       NotificationStore
	sender      push.Sender
	clock       Clock
	sendTimeout time.Duration
	logger      *zap.Logger
}

func NewDispatcher(store NotificationStore, sender push.Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		sender:      sender,
		clock:       time.Now,
		sendTimeout: 10 * time.Second,
		logger:      logger,
	}
}

func (d *Dispatcher) WithClock(clock Clock) *Dispatcher {
	d.clock = clock
	return d
}

func (d *Dispatcher) WithSendTimeout(timeout time.Duration) *Dispatcher {
	d.sendTimeout = timeout
	return d
}

// Dispatch performs exactly one write-back for an unsent notification. An
// already sent notification is skipped without contacting the provider. The
// returned error is non-nil only when the write-back itself failed.
func (d *Dispatcher) Dispatch(ctx context.Context, n *model.Notification) (Outcome, error) {
	log := logger.WithTrace(ctx, d.logger).With(zap.String("notification_id", n.ID))

	if n.Sent {
		log.Warn("Notification already sent, skipping")
		metrics.RecordPushOutcome(metrics.KindImmediate, string(StatusSkipped))
		return Outcome{ID: n.ID, Status: StatusSkipped}, nil
	}

	var (
		receipt string
		sendErr error
	)
	if n.FCMToken == "" {
		sendErr = ErrTokenUnavailable
	} else {
		receipt, sendErr = d.send(ctx, push.Message{
			Token: n.FCMToken,
			Title: n.Title,
			Body:  n.Body,
			Data:  n.Data,
			Hints: push.ImmediateHints(),
		})
	}

	now := d.clock()

	if sendErr != nil {
		reason := failureReason(sendErr)
		metrics.RecordPushOutcome(metrics.KindImmediate, string(StatusFailed))
		metrics.RecordPushFailure(metrics.KindImmediate, reason)
		log.Warn("Failed to send notification",
			zap.String("reason", reason),
			zap.Error(sendErr),
		)

		if err := d.store.MarkFailed(ctx, n.ID, now, sendErr.Error()); err != nil {
			log.Error("Failed to record notification failure", zap.Error(err))
			return Outcome{ID: n.ID, Status: StatusFailed, Err: err}, fmt.Errorf("mark notification %s failed: %w", n.ID, err)
		}
		return Outcome{ID: n.ID, Status: StatusFailed, Err: sendErr}, nil
	}

	applied, err := d.store.MarkSent(ctx, n.ID, now, receipt)
	if err != nil {
		log.Error("Failed to record notification delivery",
			zap.String("receipt", receipt),
			zap.Error(err),
		)
		return Outcome{ID: n.ID, Status: StatusFailed, Receipt: receipt, Err: err}, fmt.Errorf("mark notification %s sent: %w", n.ID, err)
	}
	if !applied {
		log.Warn("Notification was already marked sent by another delivery")
	}

	metrics.RecordPushOutcome(metrics.KindImmediate, string(StatusSent))
	log.Info("Notification sent", zap.String("receipt", receipt))

	return Outcome{ID: n.ID, Status: StatusSent, Receipt: receipt}, nil
}

func (d *Dispatcher) send(ctx context.Context, msg push.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := d.sender.Send(ctx, msg)
	metrics.RecordPushLatency(metrics.KindImmediate, time.Since(start))
	return receipt, err
}
