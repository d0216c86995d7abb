package memory

import (
	"context"
	"time"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"

	"github.com/google/uuid"
)

type RoutingRepository struct {
	s *Store
}

var _ repositories.RoutingRepository = (*RoutingRepository)(nil)

func (r *RoutingRepository) Save(ctx context.Context, a *models.RoutingAssignment) error {
	defer r.s.lock(ctx)()

	now := time.Now()
	if prev, ok := r.s.st.assignments[a.RequestID]; ok {
		a.ID = prev.ID
		a.CreatedAt = prev.CreatedAt
		a.Attempts = prev.Attempts + 1
	} else {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = now
		a.Attempts = 1
	}
	a.UpdatedAt = now
	r.s.st.assignments[a.RequestID] = *a
	return nil
}

func (r *RoutingRepository) FindByRequest(ctx context.Context, requestID string) (*models.RoutingAssignment, error) {
	defer r.s.lock(ctx)()

	a, ok := r.s.st.assignments[requestID]
	if !ok {
		return nil, repositories.ErrAssignmentNotFound
	}
	return &a, nil
}
