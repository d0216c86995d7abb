package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenRequest(t *testing.T, s *Store, target int) *models.Request {
	t.Helper()
	req := &models.Request{
		OwnerID:            "owner-1",
		Variant:            models.VariantStandard,
		Status:             models.RequestStatusOpen,
		Tier:               "community",
		Category:           "style",
		TargetVerdictCount: target,
	}
	require.NoError(t, s.Requests().Create(context.Background(), req))
	return req
}

func TestIncrementReceived_StopsAtTarget(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	req := newOpenRequest(t, s, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Requests().IncrementReceived(ctx, req.ID); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, repositories.ErrRequestNotAccepting)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	got, err := s.Requests().FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReceivedVerdictCount)
}

func TestFinalize_OnlyOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	req := newOpenRequest(t, s, 1)

	_, err := s.Requests().IncrementReceived(ctx, req.ID)
	require.NoError(t, err)

	ok, err := s.Requests().Finalize(ctx, req.ID, &models.ConsensusOutcome{Variant: models.VariantStandard})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Requests().Finalize(ctx, req.ID, &models.ConsensusOutcome{Variant: models.VariantStandard})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Requests().IncrementReceived(ctx, req.ID)
	assert.ErrorIs(t, err, repositories.ErrRequestNotAccepting)
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, err := s.Credits().Credit(ctx, "acc-1", 5, models.LedgerReasonGrant, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Credits().Debit(ctx, "acc-1", 4, nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	acct, err := s.Credits().GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, acct.Balance)

	entries, err := s.Credits().ListEntries(ctx, "acc-1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDebit_NeverOverdraws(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, err := s.Credits().Credit(ctx, "acc-1", 3, models.LedgerReasonGrant, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Credits().Debit(ctx, "acc-1", 1, nil); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	acct, err := s.Credits().GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, acct.Balance)

	_, err = s.Credits().Debit(ctx, "missing", 1, nil)
	assert.ErrorIs(t, err, repositories.ErrInsufficientCredits)
}

func TestVerdicts_DuplicateJudge(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	req := newOpenRequest(t, s, 3)
	six, eight := 6, 8

	require.NoError(t, s.Verdicts().Create(ctx, &models.Verdict{RequestID: req.ID, JudgeID: "j1", Variant: models.VariantStandard, Rating: &six}))
	err := s.Verdicts().Create(ctx, &models.Verdict{RequestID: req.ID, JudgeID: "j1", Variant: models.VariantStandard, Rating: &eight})
	assert.ErrorIs(t, err, repositories.ErrDuplicateVerdict)

	require.NoError(t, s.Verdicts().Create(ctx, &models.Verdict{RequestID: req.ID, JudgeID: "j2", Variant: models.VariantStandard, Rating: &eight}))

	n, err := s.Verdicts().CountByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	avg, err := s.Verdicts().AverageRatings(ctx, []string{req.ID, "other"})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, avg[req.ID], 0.001)
	_, ok := avg["other"]
	assert.False(t, ok)
}

func TestRouting_SaveCountsAttempts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := &models.RoutingAssignment{RequestID: "r1", Tier: "pro", Strategy: "expert_pool", Status: models.AssignmentStatusFailed}
	require.NoError(t, s.Routing().Save(ctx, a))
	b := &models.RoutingAssignment{RequestID: "r1", Tier: "pro", Strategy: "expert_pool", Status: models.AssignmentStatusAssigned}
	require.NoError(t, s.Routing().Save(ctx, b))

	got, err := s.Routing().FindByRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, models.AssignmentStatusAssigned, got.Status)
	assert.Equal(t, a.ID, got.ID)
}
