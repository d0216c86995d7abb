package repositories

import (
	"context"

	"verdict_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpertRepository interface {
	// ListEligible - активные верифицированные эксперты с уровнем не ниже minCredential
	ListEligible(ctx context.Context, minCredential int) ([]models.Expert, error)
	Upsert(ctx context.Context, e *models.Expert) error
}

type GormExpertRepository struct {
	db *gorm.DB
}

func NewExpertRepository(db *gorm.DB) *GormExpertRepository {
	return &GormExpertRepository{db: db}
}

func (r *GormExpertRepository) ListEligible(ctx context.Context, minCredential int) ([]models.Expert, error) {
	var out []models.Expert
	err := conn(ctx, r.db).
		Where("active = ? AND verified = ? AND credential_level >= ?", true, true, minCredential).
		Order("judge_id ASC").
		Find(&out).Error
	return out, err
}

func (r *GormExpertRepository) Upsert(ctx context.Context, e *models.Expert) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "judge_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "credential_level", "categories", "rating", "completed_verdicts", "verified", "active", "updated_at"}),
	}).Create(e).Error
}
