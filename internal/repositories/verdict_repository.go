package repositories

import (
	"context"

	"verdict_backend/internal/models"

	"gorm.io/gorm"
)

type VerdictRepository interface {
	// Create возвращает ErrDuplicateVerdict при нарушении (request_id, judge_id)
	Create(ctx context.Context, v *models.Verdict) error
	ExistsForJudge(ctx context.Context, requestID, judgeID string) (bool, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Verdict, error)
	CountByRequest(ctx context.Context, requestID string) (int64, error)
	// AverageRatings - средняя оценка по заявкам, у которых есть хоть одна оценка
	AverageRatings(ctx context.Context, requestIDs []string) (map[string]float64, error)
}

type GormVerdictRepository struct {
	db *gorm.DB
}

func NewVerdictRepository(db *gorm.DB) *GormVerdictRepository {
	return &GormVerdictRepository{db: db}
}

func (r *GormVerdictRepository) Create(ctx context.Context, v *models.Verdict) error {
	if err := conn(ctx, r.db).Create(v).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVerdict
		}
		return err
	}
	return nil
}

func (r *GormVerdictRepository) ExistsForJudge(ctx context.Context, requestID, judgeID string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.Verdict{}).
		Where("request_id = ? AND judge_id = ?", requestID, judgeID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *GormVerdictRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Verdict, error) {
	var out []models.Verdict
	err := conn(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *GormVerdictRepository) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.Verdict{}).Where("request_id = ?", requestID).Count(&n).Error
	return n, err
}

func (r *GormVerdictRepository) AverageRatings(ctx context.Context, requestIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		RequestID string
		Avg       float64
	}
	err := conn(ctx, r.db).Model(&models.Verdict{}).
		Select("request_id, AVG(rating) AS avg").
		Where("request_id IN ? AND rating IS NOT NULL", requestIDs).
		Group("request_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RequestID] = row.Avg
	}
	return out, nil
}
