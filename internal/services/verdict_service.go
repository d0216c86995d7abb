package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"verdict_backend/internal/events"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/services/dto"
	"verdict_backend/internal/validator"
	"verdict_backend/pkg/apperrors"
)

type VerdictService interface {
	// SubmitVerdict принимает сырое тело: форма проверяется после
	// статуса заявки и проверки на повторный вердикт.
	SubmitVerdict(ctx context.Context, judgeID, requestID string, variant models.RequestVariant, body []byte) (*dto.SubmitVerdictResponse, error)
	ListVerdicts(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.VerdictListResponse, error)
}

type VerdictRules struct {
	MinReasoningLength int
	MinFeedbackLength  int
}

type verdictService struct {
	tx          repositories.Transactor
	requestRepo repositories.RequestRepository
	verdictRepo repositories.VerdictRepository
	consensus   ConsensusService
	validator   *validator.Validator
	events      events.Publisher
	rules       VerdictRules
}

func NewVerdictService(
	tx repositories.Transactor,
	requestRepo repositories.RequestRepository,
	verdictRepo repositories.VerdictRepository,
	consensus ConsensusService,
	v *validator.Validator,
	publisher events.Publisher,
	rules VerdictRules,
) VerdictService {
	return &verdictService{
		tx:          tx,
		requestRepo: requestRepo,
		verdictRepo: verdictRepo,
		consensus:   consensus,
		validator:   v,
		events:      publisher,
		rules:       rules,
	}
}

func (s *verdictService) SubmitVerdict(ctx context.Context, judgeID, requestID string, variant models.RequestVariant, body []byte) (*dto.SubmitVerdictResponse, error) {
	// 1. заявка существует и принимает вердикты
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, handleRequestError(err)
	}
	if !req.Status.AcceptsVerdicts() {
		s.reject(variant, "not_accepting")
		return nil, apperrors.ErrRequestNotAcceptingVerdicts
	}

	// 2. судья еще не оценивал заявку и не является ее владельцем
	if req.OwnerID == judgeID {
		s.reject(variant, "self")
		return nil, apperrors.ErrSelfVerdict
	}
	exists, err := s.verdictRepo.ExistsForJudge(ctx, requestID, judgeID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if exists {
		s.reject(variant, "duplicate")
		return nil, apperrors.ErrDuplicateVerdict
	}

	// 3. форма соответствует варианту заявки, 4. длина обоснования
	verdict, err := s.decode(req, variant, body)
	if err != nil {
		s.reject(variant, "invalid")
		return nil, err
	}
	verdict.RequestID = requestID
	verdict.JudgeID = judgeID

	var (
		updated   *models.Request
		outcome   *models.ConsensusOutcome
		completed bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.verdictRepo.Create(ctx, verdict); err != nil {
			return err
		}
		var err error
		if updated, err = s.requestRepo.IncrementReceived(ctx, requestID); err != nil {
			return err
		}
		// Ровно один вызов доводит счетчик до цели, он и финализирует
		if updated.ReceivedVerdictCount == updated.TargetVerdictCount {
			outcome, completed, err = s.consensus.Finalize(ctx, requestID)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateVerdict) {
			s.reject(variant, "duplicate")
			return nil, apperrors.ErrDuplicateVerdict
		}
		if errors.Is(err, repositories.ErrRequestNotAccepting) {
			s.reject(variant, "not_accepting")
		}
		return nil, handleRequestError(err)
	}

	metrics.VerdictsSubmitted.WithLabelValues(string(variant), "accepted").Inc()
	logger.CtxInfo(ctx, "Verdict accepted",
		"event", "verdict.submitted",
		"request_id", requestID,
		"verdict_id", verdict.ID,
		"received", updated.ReceivedVerdictCount,
		"target", updated.TargetVerdictCount,
	)

	s.events.Emit(events.Event{
		Type:      events.VerdictSubmitted,
		RequestID: requestID,
		OwnerID:   req.OwnerID,
		Data: map[string]any{
			"received": updated.ReceivedVerdictCount,
			"target":   updated.TargetVerdictCount,
		},
	})
	if completed {
		s.events.Emit(events.Event{
			Type:      events.RequestCompleted,
			RequestID: requestID,
			OwnerID:   req.OwnerID,
			Data:      dto.NewOutcomeResponse(outcome),
		})
	}

	return &dto.SubmitVerdictResponse{
		Verdict:          dto.NewVerdictResponse(verdict),
		RequestCompleted: completed,
	}, nil
}

func (s *verdictService) reject(variant models.RequestVariant, reason string) {
	metrics.VerdictsSubmitted.WithLabelValues(string(variant), reason).Inc()
}

// decode строго разбирает тело вердикта под вариант заявки
func (s *verdictService) decode(req *models.Request, variant models.RequestVariant, body []byte) (*models.Verdict, error) {
	if variant != req.Variant {
		return nil, apperrors.InvalidVerdictShape(map[string]string{
			"request_type": fmt.Sprintf("Request expects a %s verdict", req.Variant),
		})
	}

	v := &models.Verdict{Variant: variant}
	switch variant {
	case models.VariantStandard:
		var in dto.StandardVerdictInput
		if err := s.decodeStrict(body, &in); err != nil {
			return nil, err
		}
		if err := s.checkReasoning(in.Reasoning); err != nil {
			return nil, err
		}
		tone := models.VerdictTone(in.Tone)
		v.Rating = in.Rating
		v.Tone = &tone
		v.Reasoning = strings.TrimSpace(in.Reasoning)
		v.TimeSpentSeconds = in.TimeSpentSeconds

	case models.VariantComparison:
		var in dto.ComparisonVerdictInput
		if err := s.decodeStrict(body, &in); err != nil {
			return nil, err
		}
		if err := s.checkReasoning(in.Reasoning); err != nil {
			return nil, err
		}
		if err := s.checkFeedback(map[string]*dto.OptionFeedbackInput{"option_a": in.OptionA, "option_b": in.OptionB}); err != nil {
			return nil, err
		}
		choice := models.Choice(in.PreferredOption)
		v.PreferredOption = &choice
		v.ConfidenceScore = in.ConfidenceScore
		v.Reasoning = strings.TrimSpace(in.Reasoning)
		v.TimeSpentSeconds = in.TimeSpentSeconds
		if err := v.SetDetails(models.VerdictDetails{
			OptionA: assessment(in.OptionA),
			OptionB: assessment(in.OptionB),
		}); err != nil {
			return nil, apperrors.InternalError(err)
		}

	case models.VariantSplitTest:
		var in dto.SplitTestVerdictInput
		if err := s.decodeStrict(body, &in); err != nil {
			return nil, err
		}
		if err := s.checkReasoning(in.Reasoning); err != nil {
			return nil, err
		}
		choice := models.Choice(in.ChosenPhoto)
		v.ChosenPhoto = &choice
		v.ConfidenceScore = in.ConfidenceScore
		v.Reasoning = strings.TrimSpace(in.Reasoning)
		v.TimeSpentSeconds = in.TimeSpentSeconds
		if err := v.SetDetails(models.VerdictDetails{
			PhotoARating: in.PhotoARating,
			PhotoBRating: in.PhotoBRating,
		}); err != nil {
			return nil, apperrors.InternalError(err)
		}

	default:
		return nil, apperrors.InvalidVerdictShape(map[string]string{"request_type": "Unknown request type"})
	}
	return v, nil
}

// decodeStrict: неизвестные поля, лишний JSON после объекта и ошибки
// тегов валидации считаются ошибкой формы вердикта
func (s *verdictService) decodeStrict(body []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidVerdictShape(map[string]string{"body": err.Error()})
	}
	if _, err := dec.Token(); err != io.EOF {
		return apperrors.InvalidVerdictShape(map[string]string{"body": "unexpected data after verdict object"})
	}

	if err := s.validator.Validate(dst); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.InvalidVerdictShape(vErr.Errors)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *verdictService) checkReasoning(reasoning string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(reasoning)); n < s.rules.MinReasoningLength {
		return apperrors.ValidationError(map[string]string{
			"reasoning": fmt.Sprintf("Must be at least %d characters long", s.rules.MinReasoningLength),
		})
	}
	return nil
}

func (s *verdictService) checkFeedback(options map[string]*dto.OptionFeedbackInput) error {
	errs := map[string]string{}
	for field, opt := range options {
		if opt == nil || opt.Feedback == "" {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(opt.Feedback)) < s.rules.MinFeedbackLength {
			errs[field+".feedback"] = fmt.Sprintf("Must be at least %d characters long", s.rules.MinFeedbackLength)
		}
	}
	if len(errs) > 0 {
		return apperrors.ValidationError(errs)
	}
	return nil
}

func assessment(in *dto.OptionFeedbackInput) *models.OptionAssessment {
	if in == nil {
		return nil
	}
	return &models.OptionAssessment{Rating: in.Rating, Feedback: strings.TrimSpace(in.Feedback)}
}

// ListVerdicts - только владельцу заявки или админу
func (s *verdictService) ListVerdicts(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.VerdictListResponse, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, handleRequestError(err)
	}
	if req.OwnerID != accountID && !role.IsAdmin() {
		return nil, apperrors.ErrRequestAccessDenied
	}

	verdicts, err := s.verdictRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.VerdictListResponse{Verdicts: make([]*dto.VerdictResponse, 0, len(verdicts)), Total: len(verdicts)}
	for i := range verdicts {
		resp.Verdicts = append(resp.Verdicts, dto.NewVerdictResponse(&verdicts[i]))
	}
	return resp, nil
}
