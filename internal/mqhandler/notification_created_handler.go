package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pushdispatch/internal/model"
	"pushdispatch/internal/mq"
	"pushdispatch/internal/repository"
	"pushdispatch/internal/service"
	"pushdispatch/pkg/logger"
	pkgmq "pushdispatch/pkg/mq"
)

type NotificationLoader interface {
	GetByID(ctx context.Context, id string) (*model.Notification, error)
}

type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *model.Notification) (service.Outcome, error)
}

// NotificationCreatedHandler loads the notification named by a
// notification.created event and hands it to the dispatcher.
type NotificationCreatedHandler struct {
	repo       NotificationLoader
	dispatcher NotificationDispatcher
	logger     *zap.Logger
}

func NewNotificationCreatedHandler(repo NotificationLoader, dispatcher NotificationDispatcher, logger *zap.Logger) *NotificationCreatedHandler {
	return &NotificationCreatedHandler{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle returns a permanent error for payloads that can never succeed so the
// consumer dead-letters them instead of requeueing.
func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	p, err := mq.DecodeNotificationCreated(raw)
	if err != nil {
		log.Error("Failed to decode notification.created payload", zap.Error(err))
		return pkgmq.Permanent(err)
	}

	log = log.With(zap.String("notification_id", p.NotificationID))

	n, err := h.repo.GetByID(ctx, p.NotificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Notification not found for event")
			return pkgmq.Permanent(fmt.Errorf("notification %s: %w", p.NotificationID, err))
		}
		log.Error("Failed to load notification", zap.Error(err))
		return err
	}

	out, err := h.dispatcher.Dispatch(ctx, n)
	if err != nil {
		return err
	}

	log.Debug("Notification event handled", zap.String("status", string(out.Status)))
	return nil
}
