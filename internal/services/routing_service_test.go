package services

import (
	"context"
	"fmt"
	"testing"

	"verdict_backend/internal/events"
	"verdict_backend/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExperts(t *testing.T, env *testEnv, n, credential int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, env.store.Experts().Upsert(context.Background(), &models.Expert{
			JudgeID:         fmt.Sprintf("expert-%02d", i),
			CredentialLevel: credential,
			Categories:      pq.StringArray{"style"},
			Rating:          4.6,
			Verified:        true,
			Active:          true,
		}))
	}
}

func TestRouteRequest_AssignsPoolAndStartsProgress(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 4)
	seedExperts(t, env, 12, 2)
	ctx := context.Background()

	req, err := env.requests.CreateRequest(ctx, "owner", standardRequest("pro"))
	require.NoError(t, err)

	res, err := env.routing.RouteRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.ExpertPool, 8)

	got, err := env.requests.GetRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, got.Status)
	assert.Equal(t, 1, env.published.count(events.RequestRouted))

	// in_progress принимает вердикты так же, как open
	_, err = env.verdicts.SubmitVerdict(ctx, "expert-00", req.ID, models.VariantStandard, standardVerdict(9))
	require.NoError(t, err)
}

func TestRouteRequest_FailureLeavesRequestOpen(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 8)
	seedExperts(t, env, 3, 1)
	ctx := context.Background()

	req, err := env.requests.CreateRequest(ctx, "owner", standardRequest("expert"))
	require.NoError(t, err)

	res, err := env.routing.RouteRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNoEligibleExperts)
	assert.False(t, res.Success)

	got, err := env.requests.GetRequest(ctx, "owner", models.UserRoleRequester, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, got.Status)

	assignment, err := env.store.Routing().FindByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusFailed, assignment.Status)
}

func TestRouteRequest_NonExpertTierIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.grant(t, "owner", 1)
	ctx := context.Background()

	req, err := env.requests.CreateRequest(ctx, "owner", standardRequest("community"))
	require.NoError(t, err)

	res, err := env.routing.RouteRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "community", res.Strategy)
	assert.Empty(t, res.ExpertPool)
}
