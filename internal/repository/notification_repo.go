package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pushdispatch/internal/model"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert writes a new unsent notification. ID must be set by the caller.
func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	data, err := encodeData(n.Data)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO notifications (id, fcm_token, title, body, data)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `
	if err := r.db.QueryRow(ctx, query, n.ID, n.FCMToken, n.Title, n.Body, data).Scan(&n.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	query := `
        SELECT id, fcm_token, title, body, data, sent, sent_at, error, error_at, response, created_at
        FROM notifications
        WHERE id = $1
    `
	var (
		n   model.Notification
		raw []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.FCMToken, &n.Title, &n.Body, &raw,
		&n.Sent, &n.SentAt, &n.Error, &n.ErrorAt, &n.Response, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	if n.Data, err = decodeData(raw); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkSent transitions an unsent notification to sent. It reports false when
// the record was already sent or does not exist.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time, response string) (bool, error) {
	query := `
        UPDATE notifications
        SET sent = TRUE, sent_at = $2, response = $3, error = NULL, error_at = NULL
        WHERE id = $1 AND sent = FALSE
    `
	tag, err := r.db.Exec(ctx, query, id, at, response)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, at time.Time, reason string) error {
	query := `
        UPDATE notifications
        SET sent = FALSE, sent_at = NULL, error = $2, error_at = $3
        WHERE id = $1 AND sent = FALSE
    `
	if _, err := r.db.Exec(ctx, query, id, reason, at); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// ListSentBefore returns ids of sent notifications with sent_at <= cutoff.
func (r *NotificationRepository) ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `
        SELECT id FROM notifications
        WHERE sent = TRUE AND sent_at <= $1
        ORDER BY sent_at ASC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent notifications: %w", err)
	}
	return collectIDs(rows)
}

// ListFailedBefore returns ids of unsent notifications with error_at <= cutoff.
func (r *NotificationRepository) ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `
        SELECT id FROM notifications
        WHERE sent = FALSE AND error_at <= $1
        ORDER BY error_at ASC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	return collectIDs(rows)
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
