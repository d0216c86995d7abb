package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"verdict_backend/internal/events"
	"verdict_backend/internal/moderation"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories/memory"
	"verdict_backend/internal/services/dto"
	"verdict_backend/internal/tiers"
	"verdict_backend/internal/validator"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Emit(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) count(t events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testEnv struct {
	store     *memory.Store
	published *recordingPublisher
	credits   CreditService
	requests  RequestService
	verdicts  VerdictService
	consensus ConsensusService
	routing   RoutingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog, err := tiers.NewCatalog(tiers.DefaultTiers(), tiers.DefaultLegacyTiers())
	require.NoError(t, err)

	store := memory.NewStore()
	pub := &recordingPublisher{}
	gate := moderation.NewGate(nil, moderation.NewRuleClassifier(moderation.RuleOptions{
		BlockedTerms:     []string{"forbidden"},
		MaxContextLength: 2000,
	}), time.Second)

	credits := NewCreditService(store, store.Credits())
	cons := NewConsensusService(store, store.Requests(), store.Verdicts())

	return &testEnv{
		store:     store,
		published: pub,
		credits:   credits,
		requests:  NewRequestService(store, store.Requests(), store.Verdicts(), credits, catalog, gate, pub),
		verdicts: NewVerdictService(store, store.Requests(), store.Verdicts(), cons, validator.New(), pub, VerdictRules{
			MinReasoningLength: 20,
			MinFeedbackLength:  10,
		}),
		consensus: cons,
		routing:   NewRoutingService(store.Requests(), store.Experts(), store.Routing(), catalog, pub, time.Second),
	}
}

func (e *testEnv) grant(t *testing.T, accountID string, amount int) {
	t.Helper()
	_, err := e.credits.Grant(context.Background(), accountID, amount, models.LedgerReasonGrant)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, accountID string) int {
	t.Helper()
	b, err := e.credits.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return b.Balance
}

func standardRequest(tier string) *dto.CreateRequestRequest {
	return &dto.CreateRequestRequest{
		Category:  "style",
		Tier:      tier,
		MediaType: "photo",
		MediaURL:  "https://cdn.example.com/outfit.jpg",
		Context:   "Is this outfit good for a job interview?",
	}
}

func standardVerdict(rating int) []byte {
	body, _ := json.Marshal(map[string]any{
		"rating":             rating,
		"tone":               "honest",
		"reasoning":          fmt.Sprintf("Rated %d because the fit and colours work well together.", rating),
		"time_spent_seconds": 42,
	})
	return body
}

func comparisonVerdict(choice string) []byte {
	body, _ := json.Marshal(map[string]any{
		"preferred_option": choice,
		"confidence_score": 7,
		"reasoning":        "Option chosen for clearer framing and better light.",
		"option_a":         map[string]any{"rating": 6, "feedback": "Nice colours overall"},
	})
	return body
}

func splitTestVerdict(choice string) []byte {
	body, _ := json.Marshal(map[string]any{
		"chosen_photo":     choice,
		"confidence_score": 8,
		"photo_a_rating":   7,
		"reasoning":        "This photo looks more natural and approachable.",
	})
	return body
}
