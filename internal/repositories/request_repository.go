package repositories

import (
	"context"
	"errors"
	"time"

	"verdict_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, id string) (*models.Request, error)
	// ListByOwner - последние limit заявок владельца одного варианта, новые первыми
	ListByOwner(ctx context.Context, ownerID string, variant models.RequestVariant, limit int) ([]models.Request, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)

	// IncrementReceived атомарно увеличивает счетчик, только если заявка
	// принимает вердикты и счетчик меньше цели. Иначе ErrRequestNotAccepting.
	IncrementReceived(ctx context.Context, id string) (*models.Request, error)
	// Finalize переводит заявку в completed. false - уже была завершена.
	Finalize(ctx context.Context, id string, outcome *models.ConsensusOutcome) (bool, error)
	// MarkInProgress: open -> in_progress, пока нет ни одного вердикта
	MarkInProgress(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	SoftDelete(ctx context.Context, id string) error

	// ListUnrouted - заявки экспертных тиров без успешной маршрутизации
	ListUnrouted(ctx context.Context, tiers []string, createdBefore time.Time, limit int) ([]models.Request, error)
}

type GormRequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

func (r *GormRequestRepository) Create(ctx context.Context, req *models.Request) error {
	return conn(ctx, r.db).Create(req).Error
}

func (r *GormRequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	err := conn(ctx, r.db).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *GormRequestRepository) ListByOwner(ctx context.Context, ownerID string, variant models.RequestVariant, limit int) ([]models.Request, error) {
	var out []models.Request
	err := conn(ctx, r.db).
		Where("owner_id = ? AND variant = ?", ownerID, variant).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *GormRequestRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.Request{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

func (r *GormRequestRepository) IncrementReceived(ctx context.Context, id string) (*models.Request, error) {
	db := conn(ctx, r.db)

	res := db.Model(&models.Request{}).
		Where("id = ? AND status IN ? AND received_verdict_count < target_verdict_count", id, models.AcceptingStatuses).
		Updates(map[string]interface{}{
			"received_verdict_count": gorm.Expr("received_verdict_count + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrRequestNotAccepting
	}

	// UPDATE держит блокировку строки до конца транзакции,
	// так что прочитанное значение - наше.
	var req models.Request
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GormRequestRepository) Finalize(ctx context.Context, id string, outcome *models.ConsensusOutcome) (bool, error) {
	now := time.Now()
	res := conn(ctx, r.db).Model(&models.Request{}).
		Where("id = ? AND status IN ? AND received_verdict_count = target_verdict_count", id, models.AcceptingStatuses).
		Select("status", "outcome", "completed_at", "updated_at").
		Updates(&models.Request{
			Status:      models.RequestStatusCompleted,
			Outcome:     outcome,
			CompletedAt: &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRequestRepository) MarkInProgress(ctx context.Context, id string) (bool, error) {
	res := conn(ctx, r.db).Model(&models.Request{}).
		Where("id = ? AND status = ? AND received_verdict_count = 0", id, models.RequestStatusOpen).
		Update("status", models.RequestStatusInProgress)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRequestRepository) Cancel(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	res := conn(ctx, r.db).Model(&models.Request{}).
		Where("id = ? AND status IN ?", id, models.AcceptingStatuses).
		Updates(map[string]interface{}{
			"status":       models.RequestStatusCancelled,
			"cancelled_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRequestRepository) SoftDelete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Request{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func (r *GormRequestRepository) ListUnrouted(ctx context.Context, tiers []string, createdBefore time.Time, limit int) ([]models.Request, error) {
	var out []models.Request
	if len(tiers) == 0 {
		return out, nil
	}
	err := conn(ctx, r.db).
		Where("status = ? AND received_verdict_count = 0 AND tier IN ? AND created_at < ?",
			models.RequestStatusOpen, tiers, createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM routing_assignments ra WHERE ra.request_id = requests.id AND ra.status = ?)",
			models.AssignmentStatusAssigned).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
