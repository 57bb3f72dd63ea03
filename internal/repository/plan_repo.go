package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pushdispatch/internal/model"
)

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// InsertBatch writes all plans in one transaction using a single pgx batch.
func (r *PlanRepository) InsertBatch(ctx context.Context, plans []*model.Plan) error {
	if len(plans) == 0 {
		return nil
	}

	query := `
        INSERT INTO plans (id, name, price, duration_days, description, active, display_order, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
    `

	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range plans {
			batch.Queue(query, p.ID, p.Name, p.Price, p.DurationDays, p.Description, p.Active, p.DisplayOrder)
		}

		br := tx.SendBatch(ctx, batch)
		for _, p := range plans {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert plan %q: %w", p.Name, err)
			}
		}
		return br.Close()
	})
}
