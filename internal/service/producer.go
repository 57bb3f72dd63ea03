package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
	"pushdispatch/internal/mq"
	"pushdispatch/internal/repository"
	"pushdispatch/pkg/logger"
	pkgmq "pushdispatch/pkg/mq"
	"pushdispatch/pkg/outbox"
	"pushdispatch/pkg/trace"
)

type NotificationInput struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type ReminderInput struct {
	UserID       string
	Title        string
	Body         string
	Data         map[string]string
	ScheduledFor time.Time
}

// Producer creates records on behalf of upstream services. Notifications are
// announced through the outbox in the same transaction that inserts them.
type Producer struct {
	db     repository.DBTX
	outbox *outbox.Repository
	newID  func() string
	logger *zap.Logger
}

func NewProducer(db repository.DBTX, outboxRepo *outbox.Repository, logger *zap.Logger) *Producer {
	return &Producer{
		db:     db,
		outbox: outboxRepo,
		newID:  uuid.NewString,
		logger: logger,
	}
}

func (p *Producer) WithIDGenerator(newID func() string) *Producer {
	p.newID = newID
	return p
}

func (p *Producer) CreateNotification(ctx context.Context, in NotificationInput) (*model.Notification, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	n := &model.Notification{
		ID:       p.newID(),
		FCMToken: in.Token,
		Title:    in.Title,
		Body:     in.Body,
		Data:     in.Data,
	}
	if n.Data == nil {
		n.Data = map[string]string{}
	}

	payload := mq.NotificationCreatedPayload{
		NotificationID: n.ID,
		TraceID:        trace.FromContext(ctx),
	}

	err := repository.WithTx(ctx, p.db, func(tx pgx.Tx) error {
		if err := repository.NewNotificationRepository(tx).Insert(ctx, n); err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, p.outbox, "notification", n.ID, pkgmq.RoutingKeyNotificationCreated, payload)
	})
	if err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, p.logger).Info("Notification created",
		zap.String("notification_id", n.ID),
	)
	return n, nil
}

func (p *Producer) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	return repository.NewNotificationRepository(p.db).GetByID(ctx, id)
}

func (p *Producer) CreateReminder(ctx context.Context, in ReminderInput) (*model.Reminder, error) {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	case strings.TrimSpace(in.Title) == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case in.ScheduledFor.IsZero():
		return nil, fmt.Errorf("%w: scheduled_for is required", ErrInvalidInput)
	}

	rem := &model.Reminder{
		ID:           p.newID(),
		UserID:       in.UserID,
		Title:        in.Title,
		Body:         in.Body,
		Data:         in.Data,
		ScheduledFor: in.ScheduledFor,
	}
	if rem.Data == nil {
		rem.Data = map[string]string{}
	}

	if err := repository.NewReminderRepository(p.db).Insert(ctx, rem); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, p.logger).Info("Reminder scheduled",
		zap.String("reminder_id", rem.ID),
		zap.String("user_id", rem.UserID),
		zap.Time("scheduled_for", rem.ScheduledFor),
	)
	return rem, nil
}

// RegisterToken stores or replaces the delivery token of a user.
func (p *Producer) RegisterToken(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: user id and token are required", ErrInvalidInput)
	}
	return repository.NewUserRepository(p.db).Upsert(ctx, userID, token)
}
