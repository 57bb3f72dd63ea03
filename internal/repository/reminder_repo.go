package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pushdispatch/internal/model"
)

type ReminderRepository struct {
	db DBTX
}

func NewReminderRepository(db DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const selectReminderColumns = `
        SELECT id, user_id, title, body, data, scheduled_for,
               sent, sent_at, error, error_at, response, created_at
        FROM scheduled_notifications
`

func (r *ReminderRepository) Insert(ctx context.Context, rem *model.Reminder) error {
	data, err := encodeData(rem.Data)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO scheduled_notifications (id, user_id, title, body, data, scheduled_for)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at
    `
	err = r.db.QueryRow(ctx, query, rem.ID, rem.UserID, rem.Title, rem.Body, data, rem.ScheduledFor).Scan(&rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*model.Reminder, error) {
	rem, err := scanReminder(r.db.QueryRow(ctx, selectReminderColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return rem, nil
}

// ListDue returns unsent reminders with from <= scheduled_for <= now, oldest first.
func (r *ReminderRepository) ListDue(ctx context.Context, now, from time.Time, limit int) ([]*model.Reminder, error) {
	query := selectReminderColumns + `
        WHERE sent = FALSE
          AND scheduled_for <= $1
          AND scheduled_for >= $2
        ORDER BY scheduled_for ASC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, now, from, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*model.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string, at time.Time, response string) (bool, error) {
	query := `
        UPDATE scheduled_notifications
        SET sent = TRUE, sent_at = $2, response = $3, error = NULL, error_at = NULL
        WHERE id = $1 AND sent = FALSE
    `
	tag, err := r.db.Exec(ctx, query, id, at, response)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, id string, at time.Time, reason string) error {
	query := `
        UPDATE scheduled_notifications
        SET sent = FALSE, sent_at = NULL, error = $2, error_at = $3
        WHERE id = $1 AND sent = FALSE
    `
	if _, err := r.db.Exec(ctx, query, id, reason, at); err != nil {
		return fmt.Errorf("failed to mark reminder failed: %w", err)
	}
	return nil
}

func (r *ReminderRepository) ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `
        SELECT id FROM scheduled_notifications
        WHERE sent = TRUE AND sent_at <= $1
        ORDER BY sent_at ASC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent reminders: %w", err)
	}
	return collectIDs(rows)
}

func (r *ReminderRepository) ListFailedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	query := `
        SELECT id FROM scheduled_notifications
        WHERE sent = FALSE AND error_at <= $1
        ORDER BY error_at ASC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed reminders: %w", err)
	}
	return collectIDs(rows)
}

func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM scheduled_notifications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func scanReminder(row pgx.Row) (*model.Reminder, error) {
	var (
		rem model.Reminder
		raw []byte
	)
	err := row.Scan(
		&rem.ID, &rem.UserID, &rem.Title, &rem.Body, &raw, &rem.ScheduledFor,
		&rem.Sent, &rem.SentAt, &rem.Error, &rem.ErrorAt, &rem.Response, &rem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rem.Data, err = decodeData(raw); err != nil {
		return nil, err
	}
	return &rem, nil
}
