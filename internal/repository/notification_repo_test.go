package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushdispatch/internal/model"
)

var notificationColumns = []string{
	"id", "fcm_token", "title", "body", "data", "sent", "sent_at", "error", "error_at", "response", "created_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestNotificationRepository_Insert(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs("n-1", "tok", "Hola", "Mundo", []byte(`{"k":"v"}`)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	n := &model.Notification{ID: "n-1", FCMToken: "tok", Title: "Hola", Body: "Mundo", Data: map[string]string{"k": "v"}}
	err := NewNotificationRepository(mock).Insert(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, now, n.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	receipt := "projects/p/messages/1"

	mock.ExpectQuery("FROM notifications").
		WithArgs("n-1").
		WillReturnRows(pgxmock.NewRows(notificationColumns).AddRow(
			"n-1", "tok", "Hola", "Mundo", []byte(`{"type":"payment"}`),
			true, &now, (*string)(nil), (*time.Time)(nil), &receipt, now,
		))

	n, err := NewNotificationRepository(mock).GetByID(context.Background(), "n-1")

	require.NoError(t, err)
	assert.True(t, n.Sent)
	assert.Equal(t, map[string]string{"type": "payment"}, n.Data)
	require.NotNil(t, n.Response)
	assert.Equal(t, receipt, *n.Response)
	assert.Nil(t, n.Error)
}

func TestNotificationRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("FROM notifications").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(notificationColumns))

	_, err := NewNotificationRepository(mock).GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationRepository_MarkSent(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectExec("UPDATE notifications").
		WithArgs("n-1", now, "receipt").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE notifications").
		WithArgs("n-1", now, "receipt").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewNotificationRepository(mock)

	applied, err := repo.MarkSent(context.Background(), "n-1", now, "receipt")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.MarkSent(context.Background(), "n-1", now, "receipt")
	require.NoError(t, err)
	assert.False(t, applied, "second write must not apply to a sent record")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkFailed(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectExec("SET sent = FALSE, sent_at = NULL, error = \\$2, error_at = \\$3").
		WithArgs("n-1", "invalid token", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := NewNotificationRepository(mock).MarkFailed(context.Background(), "n-1", now, "invalid token")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_ListSentBeforeAndDelete(t *testing.T) {
	mock := newMock(t)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery("WHERE sent = TRUE AND sent_at <= \\$1").
		WithArgs(cutoff, 500).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("n-1").AddRow("n-2"))
	mock.ExpectExec("DELETE FROM notifications").
		WithArgs("n-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewNotificationRepository(mock)

	ids, err := repo.ListSentBefore(context.Background(), cutoff, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"n-1", "n-2"}, ids)

	require.NoError(t, repo.Delete(context.Background(), "n-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
