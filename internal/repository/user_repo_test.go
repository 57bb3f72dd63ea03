package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushdispatch/internal/model"
)

func TestUserRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	token := "tok-1"
	now := time.Now()

	mock.ExpectQuery("FROM users").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "fcm_token", "updated_at"}).AddRow("u-1", &token, now))
	mock.ExpectQuery("FROM users").
		WithArgs("u-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "fcm_token", "updated_at"}))

	repo := NewUserRepository(mock)

	u, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", u.Token())

	_, err = repo.GetByID(context.Background(), "u-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Upsert(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("u-1", "tok-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewUserRepository(mock).Upsert(context.Background(), "u-1", "tok-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_InsertBatch_Empty(t *testing.T) {
	mock := newMock(t)

	require.NoError(t, NewPlanRepository(mock).InsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_InsertBatch_BeginFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("db down"))

	err := NewPlanRepository(mock).InsertBatch(context.Background(), []*model.Plan{{ID: "p-1", Name: "Plan Novato"}})

	assert.ErrorContains(t, err, "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTx(context.Background(), mock, func(tx pgx.Tx) error {
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}
