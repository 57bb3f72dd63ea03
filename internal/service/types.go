package service

import (
	"context"
	"time"

	"pushdispatch/internal/model"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is the result of processing one record. Err holds the delivery or
// write-back error for failed records.
type Outcome struct {
	ID      string
	Status  Status
	Receipt string
	Err     error
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

type NotificationStore interface {
	MarkSent(ctx context.Context, id string, at time.Time, response string) (bool, error)
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) error
}

type ReminderStore interface {
	ListDue(ctx context.Context, now, from time.Time, limit int) ([]*model.Reminder, error)
	MarkSent(ctx context.Context, id string, at time.Time, response string) (bool, error)
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Claimer grants a one-time claim on a record id across replicas.
type Claimer interface {
	AcquireOnce(ctx context.Context, handler string, id string) bool
	Release(ctx context.Context, handler string, id string) error
}

// SweepStore is implemented by both the notification and reminder repositories.
type SweepStore interface {
	ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
}
