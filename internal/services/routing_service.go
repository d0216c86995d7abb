package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verdict_backend/internal/algorithms"
	"verdict_backend/internal/events"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/tiers"
)

var ErrNoEligibleExperts = errors.New("no eligible experts for tier")

type RoutingResult struct {
	Success    bool     `json:"success"`
	Strategy   string   `json:"strategy"`
	ExpertPool []string `json:"expert_pool,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

type RoutingService interface {
	// RouteRequest подбирает пул экспертов для заявки expert_pool тира.
	// Ошибка маршрутизации не меняет заявку: она остается open.
	RouteRequest(ctx context.Context, requestID string) (*RoutingResult, error)
}

type routingService struct {
	requestRepo repositories.RequestRepository
	expertRepo  repositories.ExpertRepository
	routingRepo repositories.RoutingRepository
	catalog     *tiers.Catalog
	events      events.Publisher
	timeout     time.Duration
}

func NewRoutingService(
	requestRepo repositories.RequestRepository,
	expertRepo repositories.ExpertRepository,
	routingRepo repositories.RoutingRepository,
	catalog *tiers.Catalog,
	publisher events.Publisher,
	timeout time.Duration,
) RoutingService {
	return &routingService{
		requestRepo: requestRepo,
		expertRepo:  expertRepo,
		routingRepo: routingRepo,
		catalog:     catalog,
		events:      publisher,
		timeout:     timeout,
	}
}

func (s *routingService) RouteRequest(ctx context.Context, requestID string) (*RoutingResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	tier, err := s.catalog.Resolve(req.Tier)
	if err != nil {
		return nil, fmt.Errorf("resolve tier %q: %w", req.Tier, err)
	}

	strategy := string(tier.RoutingStrategy)
	if tier.RoutingStrategy != tiers.RoutingExpertPool {
		return &RoutingResult{Success: true, Strategy: strategy}, nil
	}
	if req.Status != models.RequestStatusOpen || req.ReceivedVerdictCount > 0 {
		return &RoutingResult{Success: false, Strategy: strategy, Reason: "request is no longer open"}, nil
	}

	pool, err := s.selectPool(ctx, req, tier)
	if err != nil {
		s.fail(ctx, req, tier, err)
		return &RoutingResult{Success: false, Strategy: strategy, Reason: err.Error()}, err
	}

	assignment := &models.RoutingAssignment{
		RequestID:  req.ID,
		Tier:       tier.Name,
		Strategy:   strategy,
		ExpertPool: pool,
		Status:     models.AssignmentStatusAssigned,
	}
	if err := s.routingRepo.Save(ctx, assignment); err != nil {
		s.fail(ctx, req, tier, err)
		return &RoutingResult{Success: false, Strategy: strategy, Reason: err.Error()}, err
	}

	// Пока нет вердиктов, заявка переходит в in_progress. Если судья успел
	// раньше, заявка просто остается open: оба статуса принимают вердикты.
	if _, err := s.requestRepo.MarkInProgress(ctx, req.ID); err != nil {
		logger.CtxWarn(ctx, "Failed to mark request in progress", "request_id", req.ID, "error", err)
	}

	metrics.RoutingAttempts.WithLabelValues("assigned").Inc()
	logger.CtxInfo(ctx, "Request routed to expert pool",
		"event", "request.routed",
		"request_id", req.ID,
		"tier", tier.Name,
		"pool_size", len(pool),
	)
	s.events.Emit(events.Event{
		Type:      events.RequestRouted,
		RequestID: req.ID,
		OwnerID:   req.OwnerID,
		Data:      map[string]any{"expert_pool": pool, "tier": tier.Name},
	})

	return &RoutingResult{Success: true, Strategy: strategy, ExpertPool: pool}, nil
}

func (s *routingService) selectPool(ctx context.Context, req *models.Request, tier tiers.TierConfig) ([]string, error) {
	experts, err := s.expertRepo.ListEligible(ctx, tier.MinCredentialLevel)
	if err != nil {
		return nil, err
	}

	candidates := experts[:0:0]
	for _, e := range experts {
		if e.JudgeID != req.OwnerID {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleExperts
	}

	ranked := algorithms.RankExperts(candidates, req.Category, tier.ExpertPoolSize)
	pool := make([]string, 0, len(ranked))
	for _, m := range ranked {
		pool = append(pool, m.Expert.JudgeID)
	}
	return pool, nil
}

// fail пишет failed-назначение. Контекст может быть уже отменен таймаутом.
func (s *routingService) fail(ctx context.Context, req *models.Request, tier tiers.TierConfig, cause error) {
	metrics.RoutingAttempts.WithLabelValues("failed").Inc()
	logger.CtxWarn(ctx, "Expert routing failed",
		"event", "request.routing_failed",
		"request_id", req.ID,
		"tier", tier.Name,
		"error", cause,
	)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	err := s.routingRepo.Save(saveCtx, &models.RoutingAssignment{
		RequestID:     req.ID,
		Tier:          tier.Name,
		Strategy:      string(tier.RoutingStrategy),
		Status:        models.AssignmentStatusFailed,
		FailureReason: cause.Error(),
	})
	if err != nil {
		logger.CtxWarn(ctx, "Failed to persist routing failure", "request_id", req.ID, "error", err)
	}
}
