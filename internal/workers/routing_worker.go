package workers

import (
	"context"
	"time"

	"verdict_backend/internal/events"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/services"
)

const sweepBatchSize = 50

// RoutingWorker запускает маршрутизацию по событию создания заявки
// и периодически добирает заявки, событие которых потерялось.
type RoutingWorker struct {
	routing     services.RoutingService
	requests    repositories.RequestRepository
	expertTiers []string
	interval    time.Duration
	staleAfter  time.Duration
	now         func() time.Time
}

func NewRoutingWorker(
	routing services.RoutingService,
	requests repositories.RequestRepository,
	expertTiers []string,
	interval, staleAfter time.Duration,
) *RoutingWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RoutingWorker{
		routing:     routing,
		requests:    requests,
		expertTiers: expertTiers,
		interval:    interval,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

// Subscribe вешает маршрутизацию на request.created
func (w *RoutingWorker) Subscribe(d *events.Dispatcher) {
	d.Subscribe(events.RequestCreated, w.HandleRequestCreated)
}

// HandleRequestCreated - неэкспертные тиры RoutingService пропускает сам
func (w *RoutingWorker) HandleRequestCreated(ctx context.Context, e events.Event) error {
	result, err := w.routing.RouteRequest(ctx, e.RequestID)
	if err != nil {
		// заявка остается open, ее подберет sweep
		logger.WorkerLog("routing", "route_on_create", err)
		return nil
	}
	if result != nil && !result.Success {
		logger.Info("Routing skipped", "request_id", e.RequestID, "reason", result.Reason)
	}
	return nil
}

// Start запускает периодический sweep
func (w *RoutingWorker) Start(ctx context.Context) {
	go w.sweepLoop(ctx)
}

func (w *RoutingWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Routing worker stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logger.WorkerLog("routing", "sweep", err)
			}
		}
	}
}

// Sweep маршрутизирует open-заявки экспертных тиров без назначения,
// созданные раньше чем staleAfter назад. Возвращает число успешных.
func (w *RoutingWorker) Sweep(ctx context.Context) (int, error) {
	if len(w.expertTiers) == 0 {
		return 0, nil
	}

	pending, err := w.requests.ListUnrouted(ctx, w.expertTiers, w.now().Add(-w.staleAfter), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	routed := 0
	for _, req := range pending {
		if ctx.Err() != nil {
			return routed, ctx.Err()
		}
		result, err := w.routing.RouteRequest(ctx, req.ID)
		if err != nil {
			logger.WorkerLog("routing", "sweep_route", err)
			continue
		}
		if result.Success {
			routed++
		}
	}

	if len(pending) > 0 {
		logger.Info("Routing sweep finished", "pending", len(pending), "routed", routed)
	}
	return routed, nil
}
