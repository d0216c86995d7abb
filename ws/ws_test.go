package ws

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"verdict_backend/internal/events"
	"verdict_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*WebSocketManager, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := NewWebSocketManager()
	go manager.Run()
	t.Cleanup(manager.Stop)

	handler := NewWebSocketHandler(manager)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if id := c.Query("account"); id != "" {
			c.Set(contextkeys.AccountIDKey, id)
		}
		c.Next()
	}, handler.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return manager, srv
}

func dial(t *testing.T, srv *httptest.Server, accountID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?account=" + accountID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeWS_RequiresAccount(t *testing.T) {
	_, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestNotifier_PushesToOwner(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "owner-1")

	require.Eventually(t, func() bool { return manager.IsClientConnected("owner-1") },
		time.Second, 10*time.Millisecond)

	notifier := NewNotifier(manager)
	err := notifier.HandleEvent(context.Background(), events.Event{
		Type:       events.VerdictSubmitted,
		RequestID:  "req-1",
		OwnerID:    "owner-1",
		Data:       map[string]any{"received": 1, "target": 3},
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	var msg PushMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.VerdictSubmitted, msg.Type)
	assert.Equal(t, "req-1", msg.RequestID)
}

func TestNotifier_RoutedReachesPoolExperts(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "expert-7")

	require.Eventually(t, func() bool { return manager.IsClientConnected("expert-7") },
		time.Second, 10*time.Millisecond)

	notifier := NewNotifier(manager)
	require.NoError(t, notifier.HandleEvent(context.Background(), events.Event{
		Type:       events.RequestRouted,
		RequestID:  "req-2",
		OwnerID:    "owner-2",
		Data:       map[string]any{"expert_pool": []string{"expert-7", "expert-9"}},
		OccurredAt: time.Now(),
	}))

	var msg PushMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.RequestRouted, msg.Type)
	assert.Equal(t, "req-2", msg.RequestID)
}

func TestClient_Ping(t *testing.T) {
	manager, srv := newTestServer(t)
	conn := dial(t, srv, "acc-3")
	require.Eventually(t, func() bool { return manager.IsClientConnected("acc-3") },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingWSMessage{Action: "ping"}))

	var msg map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg["type"])
}

func TestManager_SendToUnknownAccount(t *testing.T) {
	manager := NewWebSocketManager()
	assert.Equal(t, 0, manager.SendToUser("nobody", "hi"))
	assert.Equal(t, 0, manager.GetClientCount())
}

func TestServeWS_AfterStopClosesConnection(t *testing.T) {
	manager, srv := newTestServer(t)
	manager.Stop()

	conn := dial(t, srv, "late-1")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not left hanging")
	}
	assert.Equal(t, 0, manager.GetClientCount())
}
