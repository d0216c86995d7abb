package ws

import (
	"sync"

	"verdict_backend/internal/logger"
)

// WebSocketManager держит подключения по ID аккаунта. У одного аккаунта
// может быть несколько вкладок, поэтому клиентов несколько.
type WebSocketManager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (manager *WebSocketManager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			set, ok := manager.clients[client.AccountID]
			if !ok {
				set = make(map[*Client]struct{})
				manager.clients[client.AccountID] = set
			}
			set[client] = struct{}{}
			manager.mu.Unlock()
			logger.Debug("WebSocket client registered", "account_id", client.AccountID)

		case client := <-manager.unregister:
			manager.remove(client)

		case <-manager.done:
			manager.mu.Lock()
			for _, set := range manager.clients {
				for client := range set {
					close(client.Send)
				}
			}
			manager.clients = make(map[string]map[*Client]struct{})
			manager.mu.Unlock()
			return
		}
	}
}

// Stop закрывает все соединения и завершает Run. Повторный вызов ничего не делает.
func (manager *WebSocketManager) Stop() {
	manager.stopOnce.Do(func() { close(manager.done) })
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	set, ok := manager.clients[client.AccountID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(manager.clients, client.AccountID)
	}
	logger.Debug("WebSocket client unregistered", "account_id", client.AccountID)
}

// SendToUser отправляет сообщение во все соединения аккаунта.
// Медленный клиент с полным буфером отключается.
func (manager *WebSocketManager) SendToUser(accountID string, message any) int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	delivered := 0
	for client := range manager.clients[accountID] {
		select {
		case client.Send <- message:
			delivered++
		default:
			go func(c *Client) {
				select {
				case manager.unregister <- c:
				case <-manager.done:
				}
			}(client)
			logger.Warn("WebSocket client dropped due to full send channel", "account_id", accountID)
		}
	}
	return delivered
}

// GetClientCount возвращает количество подключенных соединений
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	total := 0
	for _, set := range manager.clients {
		total += len(set)
	}
	return total
}

// IsClientConnected проверяет, подключен ли аккаунт
func (manager *WebSocketManager) IsClientConnected(accountID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[accountID]) > 0
}
