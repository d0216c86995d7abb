package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"verdict_backend/internal/auth"
	"verdict_backend/internal/config"
	"verdict_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.Configure("middleware-test-secret", time.Hour)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": GetAccountID(c)})
	})
	r.GET("/api/v1/ping", chain...)
	return r
}

func doRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware())

	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.IssueToken("acc-1", models.UserRoleRequester)
	require.NoError(t, err)
	w = doRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acc-1")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware(), RoleMiddleware(models.UserRoleAdmin))

	user, err := auth.IssueToken("acc-1", models.UserRoleRequester)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, doRequest(r, user).Code)

	admin, err := auth.IssueToken("root", models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doRequest(r, admin).Code)
}

func TestRateLimitMiddleware_PerAccount(t *testing.T) {
	lim := NewRateLimiter(config.RateLimitConfig{Enabled: true, Requests: 2, Period: time.Minute, Storage: "memory"})
	r := newRouter(AuthMiddleware(), RateLimitMiddleware(lim))

	alice, err := auth.IssueToken("alice", models.UserRoleRequester)
	require.NoError(t, err)
	bob, err := auth.IssueToken("bob", models.UserRoleRequester)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doRequest(r, alice).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, alice).Code)

	w := doRequest(r, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry_after_seconds")
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, doRequest(r, bob).Code, "limits are per account")
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://app.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
