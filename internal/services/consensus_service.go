package services

import (
	"context"
	"errors"
	"time"

	"verdict_backend/internal/consensus"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/services/dto"
	"verdict_backend/pkg/apperrors"
)

type ConsensusService interface {
	// Finalize считает итог и переводит заявку в completed.
	// false - заявку уже завершил другой вызов, итог не перезаписан.
	Finalize(ctx context.Context, requestID string) (*models.ConsensusOutcome, bool, error)
	// Recompute считает итог по текущим вердиктам без записи.
	// Для завершенной заявки возвращает сохраненный итог.
	Recompute(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.ConsensusResponse, error)
}

type consensusService struct {
	tx          repositories.Transactor
	requestRepo repositories.RequestRepository
	verdictRepo repositories.VerdictRepository
}

func NewConsensusService(
	tx repositories.Transactor,
	requestRepo repositories.RequestRepository,
	verdictRepo repositories.VerdictRepository,
) ConsensusService {
	return &consensusService{
		tx:          tx,
		requestRepo: requestRepo,
		verdictRepo: verdictRepo,
	}
}

func (s *consensusService) Finalize(ctx context.Context, requestID string) (*models.ConsensusOutcome, bool, error) {
	start := time.Now()
	var (
		outcome   models.ConsensusOutcome
		finalized bool
		variant   models.RequestVariant
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := s.requestRepo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		variant = req.Variant

		verdicts, err := s.verdictRepo.ListByRequest(ctx, requestID)
		if err != nil {
			return err
		}

		outcome = consensus.Compute(req.Variant, verdicts)
		outcome.ComputedAt = time.Now().UTC()

		finalized, err = s.requestRepo.Finalize(ctx, requestID, &outcome)
		return err
	})
	if err != nil {
		return nil, false, handleRequestError(err)
	}

	if finalized {
		metrics.Finalizations.WithLabelValues(string(variant)).Inc()
		logger.ConsensusLog(requestID, string(variant), outcome.VerdictCount, time.Since(start))
	}
	return &outcome, finalized, nil
}

func (s *consensusService) Recompute(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.ConsensusResponse, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, handleRequestError(err)
	}
	if req.OwnerID != accountID && !role.IsAdmin() {
		return nil, apperrors.ErrRequestAccessDenied
	}

	resp := &dto.ConsensusResponse{
		RequestID: req.ID,
		Status:    req.Status,
		Final:     req.Status == models.RequestStatusCompleted,
	}
	if resp.Final && req.Outcome != nil {
		resp.Outcome = dto.NewOutcomeResponse(req.Outcome)
		return resp, nil
	}

	verdicts, err := s.verdictRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	outcome := consensus.Compute(req.Variant, verdicts)
	outcome.ComputedAt = time.Now().UTC()
	resp.Outcome = dto.NewOutcomeResponse(&outcome)
	return resp, nil
}

func handleRequestError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return apperrors.ErrRequestNotFound
	}
	if errors.Is(err, repositories.ErrRequestNotAccepting) {
		return apperrors.ErrRequestNotAcceptingVerdicts
	}
	return apperrors.InternalError(err)
}
