package ws

import (
	"context"
	"time"

	"verdict_backend/internal/events"
)

// PushMessage - то, что получает клиент
type PushMessage struct {
	Type      events.Type `json:"type"`
	RequestID string      `json:"request_id"`
	Data      any         `json:"data,omitempty"`
	SentAt    string      `json:"sent_at"`
}

// Notifier пересылает события жизненного цикла заявки в сокеты.
// Недоставка не ошибка: владелец увидит прогресс при следующем запросе.
type Notifier struct {
	manager *WebSocketManager
}

func NewNotifier(manager *WebSocketManager) *Notifier {
	return &Notifier{manager: manager}
}

// Subscribe вешает обработчики на диспетчер
func (n *Notifier) Subscribe(d *events.Dispatcher) {
	d.Subscribe(events.VerdictSubmitted, n.HandleEvent)
	d.Subscribe(events.RequestCompleted, n.HandleEvent)
	d.Subscribe(events.RequestRouted, n.HandleEvent)
}

func (n *Notifier) HandleEvent(_ context.Context, e events.Event) error {
	msg := PushMessage{
		Type:      e.Type,
		RequestID: e.RequestID,
		Data:      e.Data,
		SentAt:    e.OccurredAt.UTC().Format(time.RFC3339),
	}

	n.manager.SendToUser(e.OwnerID, msg)

	if e.Type == events.RequestRouted {
		for _, expertID := range routedPool(e.Data) {
			n.manager.SendToUser(expertID, PushMessage{
				Type:      events.RequestRouted,
				RequestID: e.RequestID,
				SentAt:    msg.SentAt,
			})
		}
	}
	return nil
}

func routedPool(data any) []string {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	pool, _ := m["expert_pool"].([]string)
	return pool
}
