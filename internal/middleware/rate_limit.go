package middleware

import (
	"fmt"
	"strconv"
	"time"

	"verdict_backend/internal/config"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "verdict_rate_limit"

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redisstore.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
}

// NewRateLimiter собирает лимитер по конфигу. Если redis недоступен,
// лимиты считаются в памяти процесса.
func NewRateLimiter(cfg config.RateLimitConfig) *limiter.Limiter {
	var store limiter.Store
	switch cfg.Storage {
	case "redis":
		s, err := NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Warn("Failed to create Redis store for rate limiting, falling back to memory", "error", err)
			s = NewMemoryStore()
		}
		store = s
	default:
		store = NewMemoryStore()
	}

	return limiter.New(store, limiter.Rate{Period: cfg.Period, Limit: cfg.Requests})
}

// RateLimitMiddleware ограничивает частоту запросов аккаунта. Ставится
// после AuthMiddleware, до любой работы хендлера: отказ 429 не оставляет
// никакого состояния. При сбое хранилища запрос пропускается.
func RateLimitMiddleware(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if accountID := GetAccountID(c); accountID != "" {
			key = "account:" + accountID
		}

		lctx, err := l.Get(c.Request.Context(), key)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "Rate limiter store failed, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			metrics.RateLimited.Inc()
			logger.CtxInfo(c.Request.Context(), "Rate limit reached",
				"event", "rate_limit.reached",
				"key", key,
				"retry_after_seconds", retryAfter,
			)
			apperrors.HandleError(c, apperrors.RateLimited(retryAfter))
			return
		}

		c.Next()
	}
}
