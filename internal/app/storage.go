package app

import (
	"context"
	"fmt"

	"verdict_backend/database"
	"verdict_backend/internal/config"
	"verdict_backend/internal/handlers"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/repositories/memory"
)

// storage - набор репозиториев одного драйвера
type storage struct {
	tx       repositories.Transactor
	requests repositories.RequestRepository
	verdicts repositories.VerdictRepository
	credits  repositories.CreditRepository
	experts  repositories.ExpertRepository
	routing  repositories.RoutingRepository

	ping  handlers.Pinger
	close func() error
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		return newMemoryStorage(), nil
	case "postgres":
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	logger.Info("Connecting to database...")
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	return &storage{
		tx:       repositories.NewGormTransactor(db),
		requests: repositories.NewRequestRepository(db),
		verdicts: repositories.NewVerdictRepository(db),
		credits:  repositories.NewCreditRepository(db),
		experts:  repositories.NewExpertRepository(db),
		routing:  repositories.NewRoutingRepository(db),
		ping:     sqlDB.PingContext,
		close:    sqlDB.Close,
	}, nil
}

func newMemoryStorage() *storage {
	store := memory.NewStore()
	return &storage{
		tx:       store,
		requests: store.Requests(),
		verdicts: store.Verdicts(),
		credits:  store.Credits(),
		experts:  store.Experts(),
		routing:  store.Routing(),
		ping:     func(context.Context) error { return nil },
		close:    func() error { return nil },
	}
}
