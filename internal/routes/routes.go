package routes

import (
	"verdict_backend/internal/handlers"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/middleware"
	"verdict_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
// wsHandler может быть nil (CLI, тесты).
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
) {
	// Служебные
	if appHandlers.HealthHandler != nil {
		ginRouter.GET("/healthz", appHandlers.HealthHandler.Health)
	}
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// HTTP API v1, все под JWT
	api := ginRouter.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		appHandlers.RequestHandler.RegisterRoutes(api)
		appHandlers.VerdictHandler.RegisterRoutes(api)
		appHandlers.CreditHandler.RegisterRoutes(api)
	}

	if wsHandler == nil {
		return
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsHandler.RegisterRoutes(wsGroup)
	}
	logger.Info("WebSocket route /ws registered")
}
