package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"verdict_backend/internal/app"
	"verdict_backend/internal/auth"
	"verdict_backend/internal/config"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/models"
)

const testJWTSecret = "verdict_test_secret_0123456789"

type TestServer struct {
	Server *httptest.Server
	App    *app.App
}

// TestConfig - конфиг на памяти, без OpenAI и с маленьким лимитом
func TestConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.Env = "test"
	cfg.Database.Driver = "memory"
	cfg.JWT.Secret = testJWTSecret
	cfg.Moderation.Enabled = false
	cfg.Moderation.BlockedTerms = []string{"forbidden"}
	cfg.RateLimit.Requests = 1000
	cfg.Routing.SweepInterval = time.Hour
	cfg.Events.Workers = 2
	return cfg
}

// NewTestServer поднимает приложение целиком поверх in-memory хранилища.
// mutate может поправить конфиг до сборки.
func NewTestServer(t *testing.T, mutate ...func(*config.Config)) *TestServer {
	t.Helper()
	logger.Init("test")

	cfg := TestConfig()
	for _, m := range mutate {
		m(cfg)
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Не удалось собрать приложение: %v", err)
	}
	stop := application.StartBackground(context.Background())

	server := httptest.NewServer(application.Router())
	t.Cleanup(func() {
		server.Close()
		stop()
	})

	return &TestServer{
		Server: server,
		App:    application,
	}
}

// Token выпускает JWT для аккаунта
func (ts *TestServer) Token(t *testing.T, accountID string, role models.UserRole) string {
	t.Helper()
	token, err := auth.IssueToken(accountID, role)
	if err != nil {
		t.Fatalf("Не удалось выпустить токен: %v", err)
	}
	return token
}

func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()
	url := ts.Server.URL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Ошибка кодирования JSON для запроса: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("Ошибка создания HTTP-запроса: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("Ошибка отправки HTTP-запроса: %v", err)
	}
	defer res.Body.Close()

	resBodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Ошибка чтения тела ответа: %v", err)
	}

	return res, string(resBodyBytes)
}

// GrantCredits пополняет баланс через админский эндпоинт
func (ts *TestServer) GrantCredits(t *testing.T, accountID string, amount int) {
	t.Helper()
	admin := ts.Token(t, "admin-1", models.UserRoleAdmin)
	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/credits/grant", admin, map[string]any{
		"account_id": accountID,
		"amount":     amount,
		"reason":     "grant",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Не удалось начислить кредиты: %d %s", res.StatusCode, body)
	}
}

// SeedExperts добавляет верифицированных экспертов в реестр
func (ts *TestServer) SeedExperts(t *testing.T, ids []string, credential int, category string) {
	t.Helper()
	for _, id := range ids {
		err := ts.App.Experts().Upsert(context.Background(), &models.Expert{
			JudgeID:         id,
			CredentialLevel: credential,
			Categories:      []string{category},
			Rating:          4.5,
			Verified:        true,
			Active:          true,
		})
		if err != nil {
			t.Fatalf("Не удалось создать эксперта %s: %v", id, err)
		}
	}
}

// DecodeJSON - разбор тела ответа в тестах
func DecodeJSON(t *testing.T, body string, out interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), out); err != nil {
		t.Fatalf("Не удалось разобрать ответ %q: %v", body, err)
	}
}
