package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pushdispatch/internal/config"
	"pushdispatch/internal/model"
	"pushdispatch/internal/repository"
	"pushdispatch/pkg/db"
	"pushdispatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	plans := seedPlans(uuid.NewString)
	for _, p := range plans {
		log.Info("Prepared plan",
			zap.String("id", p.ID),
			zap.String("name", p.Name),
			zap.Int("price", p.Price),
			zap.Int("display_order", p.DisplayOrder),
		)
	}

	if err := repository.NewPlanRepository(dbConn).InsertBatch(ctx, plans); err != nil {
		log.Fatal("Failed to seed plans", zap.Error(err))
	}

	log.Info("Plans seeded", zap.Int("count", len(plans)))
}

func seedPlans(newID func() string) []*model.Plan {
	defs := []struct {
		name        string
		price       int
		description string
	}{
		{"Plan Novato", 10000, "1 clase mensual - Ideal para probar"},
		{"Plan Iniciado", 35000, "4 clases mensuales - Para empezar tu entrenamiento"},
		{"Plan Guerrero", 45000, "8 clases mensuales - Entrena de forma regular"},
		{"Plan Nak Muay", 55000, "12 clases mensuales - Mejora tu técnica"},
		{"Plan Peleador", 65000, "Clases ilimitadas - Entrena todos los días"},
	}

	plans := make([]*model.Plan, 0, len(defs))
	for i, d := range defs {
		plans = append(plans, &model.Plan{
			ID:           newID(),
			Name:         d.name,
			Price:        d.price,
			DurationDays: 30,
			Description:  d.description,
			Active:       true,
			DisplayOrder: i + 1,
		})
	}
	return plans
}
