package memory

import (
	"context"
	"sort"
	"time"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"

	"github.com/google/uuid"
)

type RequestRepository struct {
	s *Store
}

var _ repositories.RequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	defer r.s.lock(ctx)()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	r.s.st.requests[req.ID] = *req
	return nil
}

// get - без блокировки, только под мьютексом
func (r *RequestRepository) get(id string) (models.Request, bool) {
	req, ok := r.s.st.requests[id]
	if !ok || req.DeletedAt.Valid {
		return models.Request{}, false
	}
	return req, true
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	return &req, nil
}

func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID string, variant models.RequestVariant, limit int) ([]models.Request, error) {
	defer r.s.lock(ctx)()

	var out []models.Request
	for _, req := range r.s.st.requests {
		if req.DeletedAt.Valid || req.OwnerID != ownerID || req.Variant != variant {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RequestRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for _, req := range r.s.st.requests {
		if !req.DeletedAt.Valid && req.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *RequestRepository) IncrementReceived(ctx context.Context, id string) (*models.Request, error) {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	if !req.Status.AcceptsVerdicts() || req.ReceivedVerdictCount >= req.TargetVerdictCount {
		return nil, repositories.ErrRequestNotAccepting
	}
	req.ReceivedVerdictCount++
	req.UpdatedAt = time.Now()
	r.s.st.requests[id] = req
	return &req, nil
}

func (r *RequestRepository) Finalize(ctx context.Context, id string, outcome *models.ConsensusOutcome) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return false, repositories.ErrRequestNotFound
	}
	if !req.Status.AcceptsVerdicts() || req.ReceivedVerdictCount != req.TargetVerdictCount {
		return false, nil
	}
	now := time.Now()
	req.Status = models.RequestStatusCompleted
	req.Outcome = outcome
	req.CompletedAt = &now
	req.UpdatedAt = now
	r.s.st.requests[id] = req
	return true, nil
}

func (r *RequestRepository) MarkInProgress(ctx context.Context, id string) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return false, repositories.ErrRequestNotFound
	}
	if req.Status != models.RequestStatusOpen || req.ReceivedVerdictCount != 0 {
		return false, nil
	}
	req.Status = models.RequestStatusInProgress
	req.UpdatedAt = time.Now()
	r.s.st.requests[id] = req
	return true, nil
}

func (r *RequestRepository) Cancel(ctx context.Context, id string) (bool, error) {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return false, repositories.ErrRequestNotFound
	}
	if !req.Status.AcceptsVerdicts() {
		return false, nil
	}
	now := time.Now()
	req.Status = models.RequestStatusCancelled
	req.CancelledAt = &now
	req.UpdatedAt = now
	r.s.st.requests[id] = req
	return true, nil
}

func (r *RequestRepository) SoftDelete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	req, ok := r.get(id)
	if !ok {
		return repositories.ErrRequestNotFound
	}
	req.DeletedAt.Time = time.Now()
	req.DeletedAt.Valid = true
	r.s.st.requests[id] = req
	return nil
}

func (r *RequestRepository) ListUnrouted(ctx context.Context, tiers []string, createdBefore time.Time, limit int) ([]models.Request, error) {
	defer r.s.lock(ctx)()

	wanted := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		wanted[t] = true
	}

	var out []models.Request
	for _, req := range r.s.st.requests {
		if req.DeletedAt.Valid || req.Status != models.RequestStatusOpen || req.ReceivedVerdictCount != 0 {
			continue
		}
		if !wanted[req.Tier] || !req.CreatedAt.Before(createdBefore) {
			continue
		}
		if a, ok := r.s.st.assignments[req.ID]; ok && a.Status == models.AssignmentStatusAssigned {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
