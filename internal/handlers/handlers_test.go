package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"verdict_backend/internal/events"
	"verdict_backend/internal/models"
	"verdict_backend/internal/moderation"
	"verdict_backend/internal/repositories/memory"
	"verdict_backend/internal/services"
	"verdict_backend/internal/tiers"
	"verdict_backend/internal/validator"
	"verdict_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardPublisher struct{}

func (discardPublisher) Emit(events.Event) {}

type testRouter struct {
	engine  *gin.Engine
	credits services.CreditService
}

// asAccount подменяет AuthMiddleware: идентичность берется из заголовков
func asAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Account"); id != "" {
			c.Set(contextkeys.AccountIDKey, id)
			c.Set(contextkeys.RoleKey, models.UserRole(c.GetHeader("X-Test-Role")))
		}
		c.Next()
	}
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := tiers.NewCatalog(tiers.DefaultTiers(), tiers.DefaultLegacyTiers())
	require.NoError(t, err)

	store := memory.NewStore()
	pub := discardPublisher{}
	gate := moderation.NewGate(nil, moderation.NewRuleClassifier(moderation.RuleOptions{MaxContextLength: 2000}), time.Second)
	v := validator.New()

	credits := services.NewCreditService(store, store.Credits())
	cons := services.NewConsensusService(store, store.Requests(), store.Verdicts())
	requests := services.NewRequestService(store, store.Requests(), store.Verdicts(), credits, catalog, gate, pub)
	verdicts := services.NewVerdictService(store, store.Requests(), store.Verdicts(), cons, v, pub, services.VerdictRules{MinReasoningLength: 20})

	base := NewBaseHandler(v)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(asAccount())
	NewRequestHandler(base, requests, cons, nil).RegisterRoutes(api)
	NewVerdictHandler(base, verdicts).RegisterRoutes(api)
	NewCreditHandler(base, credits).RegisterRoutes(api)

	return &testRouter{engine: r, credits: credits}
}

func (tr *testRouter) do(method, path, account, role string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		req.Header.Set("X-Test-Account", account)
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, req)
	return w
}

func TestCreateRequest_Created(t *testing.T) {
	tr := newTestRouter(t)
	_, err := tr.credits.Grant(context.Background(), "owner", 2, models.LedgerReasonGrant)
	require.NoError(t, err)

	w := tr.do(http.MethodPost, "/api/v1/requests", "owner", "requester", map[string]any{
		"category":     "style",
		"tier":         "standard",
		"media_type":   "text",
		"text_content": "Cover letter draft",
		"context":      "Is this cover letter persuasive?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Request struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Tier   string `json:"tier"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Request.ID)
	assert.Equal(t, "open", body.Request.Status)
	assert.Equal(t, "standard", body.Request.Tier)
}

func TestCreateRequest_ValidationErrors(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodPost, "/api/v1/requests", "owner", "requester", map[string]any{
		"request_type": "poll",
		"tier":         "standard",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "request_type")
	assert.Contains(t, body.Error.Details, "category")
}

func TestHandlers_RequireIdentity(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodGet, "/api/v1/credits/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetRequest_NotFound(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodGet, "/api/v1/requests/missing", "owner", "requester", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitVerdict_MalformedBodyOnMissingRequest(t *testing.T) {
	tr := newTestRouter(t)

	// заявка проверяется раньше формы
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/missing/verdicts/standard", bytes.NewBufferString("{not json"))
	req.Header.Set("X-Test-Account", "judge")
	req.Header.Set("X-Test-Role", "judge")
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGrantCredits_AdminOnly(t *testing.T) {
	tr := newTestRouter(t)
	body := map[string]any{"account_id": "acc-9", "amount": 5, "reason": "grant"}

	w := tr.do(http.MethodPost, "/api/v1/admin/credits/grant", "someone", "judge", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = tr.do(http.MethodPost, "/api/v1/admin/credits/grant", "root", "admin", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = tr.do(http.MethodGet, "/api/v1/credits/me", "acc-9", "requester", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"account_id":"acc-9","balance":5}`, w.Body.String())
}

func TestParseLimitOffset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 20, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=500", 100, 0},
		{"limit=-1&offset=-3", 20, 0},
		{"limit=abc", 20, 0},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		limit, offset := ParseLimitOffset(c)
		assert.Equal(t, tc.limit, limit, tc.query)
		assert.Equal(t, tc.offset, offset, tc.query)
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := NewHealthHandler(map[string]Pinger{"database": func(context.Context) error { return nil }})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	ok.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewHealthHandler(map[string]Pinger{"database": func(context.Context) error { return errors.New("connection refused") }})
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	down.Health(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
