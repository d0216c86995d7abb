package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"verdict_backend/internal/events"
	"verdict_backend/internal/models"
	"verdict_backend/internal/services/dto"
	"verdict_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequest_ChargesTierAndEmits(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 5)

	resp, err := env.requests.CreateRequest(context.Background(), "owner", standardRequest("standard"))
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusOpen, resp.Status)
	assert.Equal(t, models.VariantStandard, resp.RequestType)
	assert.Equal(t, 5, resp.TargetVerdictCount)
	assert.Equal(t, 0, resp.ReceivedVerdictCount)
	assert.Equal(t, 2, resp.CreditsCharged)
	assert.Equal(t, 3, env.balance(t, "owner"))
	assert.Equal(t, 1, env.published.count(events.RequestCreated))

	ledger, err := env.credits.GetLedger(context.Background(), "owner", 10)
	require.NoError(t, err)
	require.Len(t, ledger.Entries, 2)
	assert.Equal(t, models.LedgerEntryDebit, ledger.Entries[0].EntryType)
	require.NotNil(t, ledger.Entries[0].RequestID)
	assert.Equal(t, resp.ID, *ledger.Entries[0].RequestID)
}

func TestCreateRequest_LegacyTierUsesCatalogPrice(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 1)

	in := standardRequest("")
	in.RequestTier = "3"
	resp, err := env.requests.CreateRequest(context.Background(), "owner", in)
	require.NoError(t, err)

	assert.Equal(t, "community", resp.Tier)
	assert.Equal(t, 3, resp.TargetVerdictCount)
	assert.Equal(t, 0, env.balance(t, "owner"))
}

func TestCreateRequest_InsufficientCreditsLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 3)

	_, err := env.requests.CreateRequest(context.Background(), "owner", standardRequest("pro"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCredits)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 4, appErr.Fields["required_credits"])

	list, err := env.requests.ListRequests(context.Background(), "owner", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Equal(t, 3, env.balance(t, "owner"))
}

func TestCreateRequest_ModerationRejectionSkipsDebit(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 2)

	in := standardRequest("community")
	in.Context = "Something FORBIDDEN here"
	_, err := env.requests.CreateRequest(context.Background(), "owner", in)
	assert.ErrorIs(t, err, apperrors.ErrModerationRejected)
	assert.Equal(t, 2, env.balance(t, "owner"))
	assert.Zero(t, env.published.count(events.RequestCreated))
}

func TestCreateRequest_ValidationAndTierErrors(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 10)
	ctx := context.Background()

	t.Run("comparison without option_b", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, "owner", &dto.CreateRequestRequest{
			RequestType:     "comparison",
			Category:        "career",
			Tier:            "community",
			OptionA:         &dto.ComparisonOptionInput{Label: "Offer A"},
			DecisionContext: "Which offer should I take?",
		})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
		assert.Contains(t, appErr.Details, "option_b")
	})

	t.Run("missing tier", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, "owner", standardRequest(""))
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Contains(t, appErr.Details, "tier")
	})

	t.Run("unknown tier", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, "owner", standardRequest("platinum"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidTier)
	})

	assert.Equal(t, 10, env.balance(t, "owner"))
}

func TestCreateRequest_ConcurrentDebitsNeverOverspend(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 3)

	var wg sync.WaitGroup
	var created, rejected atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.requests.CreateRequest(context.Background(), "owner", standardRequest("community"))
			switch {
			case err == nil:
				created.Add(1)
			case apperrors.Is(err, apperrors.ErrInsufficientCredits):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), created.Load())
	assert.Equal(t, int32(7), rejected.Load())
	assert.Equal(t, 0, env.balance(t, "owner"))
}

func TestListRequests_MergesVariantsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 20)
	ctx := context.Background()

	_, err := env.requests.CreateRequest(ctx, "owner", standardRequest("community"))
	require.NoError(t, err)
	_, err = env.requests.CreateRequest(ctx, "owner", &dto.CreateRequestRequest{
		RequestType: "split_test",
		Category:    "dating",
		Tier:        "community",
		PhotoAURL:   "https://cdn.example.com/a.jpg",
		PhotoBURL:   "https://cdn.example.com/b.jpg",
		Context:     "Which profile photo?",
	})
	require.NoError(t, err)
	std, err := env.requests.CreateRequest(ctx, "owner", standardRequest("community"))
	require.NoError(t, err)

	_, err = env.verdicts.SubmitVerdict(ctx, "judge-1", std.ID, models.VariantStandard, standardVerdict(7))
	require.NoError(t, err)
	_, err = env.verdicts.SubmitVerdict(ctx, "judge-2", std.ID, models.VariantStandard, standardVerdict(8))
	require.NoError(t, err)

	list, err := env.requests.ListRequests(ctx, "owner", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Requests, 2)
	assert.False(t, list.Requests[0].CreatedAt.Before(list.Requests[1].CreatedAt))

	page2, err := env.requests.ListRequests(ctx, "owner", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2.Requests, 1)

	all := append(list.Requests, page2.Requests...)
	seen := map[string]bool{}
	for _, item := range all {
		seen[item.ID] = true
		if item.ID == std.ID {
			require.NotNil(t, item.AvgRating)
			assert.Equal(t, 7.5, *item.AvgRating)
			assert.Equal(t, 2, item.VerdictPreview.Received)
		}
		if item.RequestType == models.VariantSplitTest {
			assert.Nil(t, item.AvgRating)
		}
	}
	assert.Len(t, seen, 3)
}

func TestCancelAndDeleteRequest(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 2)
	ctx := context.Background()

	req, err := env.requests.CreateRequest(ctx, "owner", standardRequest("community"))
	require.NoError(t, err)

	err = env.requests.DeleteRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrRequestNotDeletable)

	_, err = env.requests.CancelRequest(ctx, "stranger", models.UserRoleRequester, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrRequestAccessDenied)

	cancelled, err := env.requests.CancelRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, env.balance(t, "owner"), "cancellation does not refund")

	_, err = env.requests.CancelRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrRequestNotCancellable)

	require.NoError(t, env.requests.DeleteRequest(ctx, "owner", models.UserRoleRequester, req.ID))
	_, err = env.requests.GetRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}
