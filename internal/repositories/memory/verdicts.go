package memory

import (
	"context"
	"sort"
	"time"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"

	"github.com/google/uuid"
)

type VerdictRepository struct {
	s *Store
}

var _ repositories.VerdictRepository = (*VerdictRepository)(nil)

func (r *VerdictRepository) Create(ctx context.Context, v *models.Verdict) error {
	defer r.s.lock(ctx)()

	judges := r.s.st.byJudge[v.RequestID]
	if _, dup := judges[v.JudgeID]; dup {
		return repositories.ErrDuplicateVerdict
	}
	if judges == nil {
		judges = map[string]string{}
		r.s.st.byJudge[v.RequestID] = judges
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	judges[v.JudgeID] = v.ID
	r.s.st.verdicts[v.ID] = *v
	return nil
}

func (r *VerdictRepository) ExistsForJudge(ctx context.Context, requestID, judgeID string) (bool, error) {
	defer r.s.lock(ctx)()

	_, ok := r.s.st.byJudge[requestID][judgeID]
	return ok, nil
}

func (r *VerdictRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Verdict, error) {
	defer r.s.lock(ctx)()

	out := make([]models.Verdict, 0, len(r.s.st.byJudge[requestID]))
	for _, id := range r.s.st.byJudge[requestID] {
		out = append(out, r.s.st.verdicts[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *VerdictRepository) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.s.st.byJudge[requestID])), nil
}

func (r *VerdictRepository) AverageRatings(ctx context.Context, requestIDs []string) (map[string]float64, error) {
	defer r.s.lock(ctx)()

	out := make(map[string]float64, len(requestIDs))
	for _, reqID := range requestIDs {
		sum, n := 0, 0
		for _, id := range r.s.st.byJudge[reqID] {
			if rating := r.s.st.verdicts[id].Rating; rating != nil {
				sum += *rating
				n++
			}
		}
		if n > 0 {
			out[reqID] = float64(sum) / float64(n)
		}
	}
	return out, nil
}
