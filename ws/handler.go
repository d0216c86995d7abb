package ws

import (
	"net/http"

	"verdict_backend/internal/logger"
	"verdict_backend/internal/middleware"
	"verdict_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager  *WebSocketManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler: пустой allowedOrigins - разрешены все origin
func NewWebSocketHandler(manager *WebSocketManager, allowedOrigins ...string) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &WebSocketHandler{
		Manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes ожидает группу под AuthMiddleware
func (h *WebSocketHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ServeWS)
}

func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "WebSocket upgrade error", err)
		return
	}

	client := &Client{
		AccountID: accountID,
		Conn:      conn,
		Send:      make(chan any, sendBuffer),
		Manager:   h.Manager,
	}

	select {
	case h.Manager.register <- client:
	case <-h.Manager.done:
		conn.Close()
		return
	}

	logger.CtxInfo(c.Request.Context(), "WebSocket client connected", "account_id", accountID)

	go client.readPump()
	go client.writePump()
}
