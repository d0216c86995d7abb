package memory

import (
	"context"
	"sort"
	"time"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
)

type ExpertRepository struct {
	s *Store
}

var _ repositories.ExpertRepository = (*ExpertRepository)(nil)

func (r *ExpertRepository) ListEligible(ctx context.Context, minCredential int) ([]models.Expert, error) {
	defer r.s.lock(ctx)()

	var out []models.Expert
	for _, e := range r.s.st.experts {
		if e.Active && e.Verified && e.CredentialLevel >= minCredential {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JudgeID < out[j].JudgeID })
	return out, nil
}

func (r *ExpertRepository) Upsert(ctx context.Context, e *models.Expert) error {
	defer r.s.lock(ctx)()

	now := time.Now()
	if prev, ok := r.s.st.experts[e.JudgeID]; ok {
		e.CreatedAt = prev.CreatedAt
	} else if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	r.s.st.experts[e.JudgeID] = *e
	return nil
}
