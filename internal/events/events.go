// Package events - внутренняя шина побочных эффектов (маршрутизация,
// уведомления). Emit никогда не блокирует вызывающего: при полной очереди
// событие отбрасывается с записью в лог.
package events

import (
	"context"
	"sync"
	"time"

	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
)

type Type string

const (
	RequestCreated   Type = "request.created"
	VerdictSubmitted Type = "verdict.submitted"
	RequestCompleted Type = "request.completed"
	RequestRouted    Type = "request.routed"
)

type Event struct {
	Type       Type      `json:"type"`
	RequestID  string    `json:"request_id"`
	OwnerID    string    `json:"owner_id"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Handler func(ctx context.Context, e Event) error

// Publisher - то, что нужно сервисам
type Publisher interface {
	Emit(e Event)
}

type Dispatcher struct {
	queue    chan Event
	mu       sync.RWMutex
	handlers map[Type][]Handler

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:    make(chan Event, buffer),
		handlers: make(map[Type][]Handler),
	}
}

func (d *Dispatcher) Subscribe(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

func (d *Dispatcher) Emit(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	select {
	case d.queue <- e:
	default:
		metrics.EventsDropped.WithLabelValues(string(e.Type)).Inc()
		logger.Warn("Event queue full, event dropped",
			"event_type", e.Type,
			"request_id", e.RequestID,
		)
	}
}

// Start запускает workers обработчиков. Останавливаются по ctx или Stop.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
	logger.Info("Event dispatcher started", "workers", workers, "buffer", cap(d.queue))
}

// Stop дожидается завершения обработчиков. Необработанные события теряются.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.dispatch(ctx, e)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	d.mu.RLock()
	handlers := d.handlers[e.Type]
	d.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panicked", "event_type", e.Type, "panic", r)
				}
			}()
			if err := h(ctx, e); err != nil {
				logger.Warn("Event handler failed",
					"event_type", e.Type,
					"request_id", e.RequestID,
					"error", err,
				)
			}
		}()
	}
}
