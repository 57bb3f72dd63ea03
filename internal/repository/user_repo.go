package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pushdispatch/internal/model"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
        SELECT id, fcm_token, updated_at
        FROM users
        WHERE id = $1
    `
	var u model.User
	if err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.FCMToken, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Upsert registers or replaces the delivery token of a user.
func (r *UserRepository) Upsert(ctx context.Context, id, token string) error {
	query := `
        INSERT INTO users (id, fcm_token, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (id) DO UPDATE
        SET fcm_token = EXCLUDED.fcm_token, updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, query, id, token); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
