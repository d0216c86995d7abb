package repositories

import (
	"context"
	"errors"

	"verdict_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoutingRepository interface {
	// Save перезаписывает назначение заявки и увеличивает счетчик попыток
	Save(ctx context.Context, a *models.RoutingAssignment) error
	FindByRequest(ctx context.Context, requestID string) (*models.RoutingAssignment, error)
}

type GormRoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *GormRoutingRepository {
	return &GormRoutingRepository{db: db}
}

func (r *GormRoutingRepository) Save(ctx context.Context, a *models.RoutingAssignment) error {
	if a.Attempts == 0 {
		a.Attempts = 1
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "request_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"strategy":       a.Strategy,
			"expert_pool":    a.ExpertPool,
			"status":         a.Status,
			"failure_reason": a.FailureReason,
			"attempts":       gorm.Expr("routing_assignments.attempts + 1"),
			"updated_at":     gorm.Expr("NOW()"),
		}),
	}).Create(a).Error
}

func (r *GormRoutingRepository) FindByRequest(ctx context.Context, requestID string) (*models.RoutingAssignment, error) {
	var a models.RoutingAssignment
	err := conn(ctx, r.db).First(&a, "request_id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}
