package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"verdict_backend/internal/events"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/internal/moderation"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/services/dto"
	"verdict_backend/internal/tiers"
	"verdict_backend/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type RequestService interface {
	CreateRequest(ctx context.Context, ownerID string, req *dto.CreateRequestRequest) (*dto.RequestResponse, error)
	GetRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.RequestResponse, error)
	ListRequests(ctx context.Context, ownerID string, limit, offset int) (*dto.RequestListResponse, error)
	CancelRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.RequestResponse, error)
	DeleteRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) error
}

type requestService struct {
	tx          repositories.Transactor
	requestRepo repositories.RequestRepository
	verdictRepo repositories.VerdictRepository
	credits     CreditService
	catalog     *tiers.Catalog
	moderation  moderation.Evaluator
	events      events.Publisher
}

func NewRequestService(
	tx repositories.Transactor,
	requestRepo repositories.RequestRepository,
	verdictRepo repositories.VerdictRepository,
	credits CreditService,
	catalog *tiers.Catalog,
	moderation moderation.Evaluator,
	publisher events.Publisher,
) RequestService {
	return &requestService{
		tx:          tx,
		requestRepo: requestRepo,
		verdictRepo: verdictRepo,
		credits:     credits,
		catalog:     catalog,
		moderation:  moderation,
		events:      publisher,
	}
}

// ---------------- Create ----------------

// CreateRequest: модерация -> тир -> (списание + создание) в одной транзакции.
// Отказ на любом шаге не оставляет ни заявки, ни списания.
func (s *requestService) CreateRequest(ctx context.Context, ownerID string, in *dto.CreateRequestRequest) (*dto.RequestResponse, error) {
	variant := in.Variant()
	req := &models.Request{
		OwnerID:  ownerID,
		Variant:  variant,
		Status:   models.RequestStatusOpen,
		Category: strings.TrimSpace(in.Category),
	}
	sub, err := buildPayload(in, req)
	if err != nil {
		metrics.RequestsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	decision := s.moderation.Evaluate(ctx, sub)
	if !decision.Approved {
		metrics.RequestsRejected.WithLabelValues("moderation").Inc()
		logger.CtxInfo(ctx, "Request rejected by moderation",
			"event", "request.moderation_rejected",
			"source", decision.Source,
			"reason", decision.Reason,
		)
		return nil, apperrors.ModerationRejected(decision.Reason)
	}

	tier, err := s.catalog.Resolve(in.TierName())
	if err != nil {
		metrics.RequestsRejected.WithLabelValues("tier").Inc()
		return nil, apperrors.ErrInvalidTier.WithDetails(map[string]string{"tier": in.TierName()})
	}

	req.ID = uuid.NewString()
	req.Tier = tier.Name
	req.TargetVerdictCount = tier.VerdictCount
	req.ReceivedVerdictCount = 0
	req.CreditsCharged = tier.CreditsRequired

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.credits.Debit(ctx, ownerID, tier.CreditsRequired, &req.ID); err != nil {
			return err
		}
		return s.requestRepo.Create(ctx, req)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientCredits) {
			metrics.RequestsRejected.WithLabelValues("credits").Inc()
		}
		return nil, handleRequestError(err)
	}

	metrics.RequestsCreated.WithLabelValues(string(variant), tier.Name).Inc()
	logger.CtxInfo(ctx, "Request created",
		"event", "request.created",
		"request_id", req.ID,
		"variant", variant,
		"tier", tier.Name,
		"credits_charged", tier.CreditsRequired,
	)

	s.events.Emit(events.Event{
		Type:      events.RequestCreated,
		RequestID: req.ID,
		OwnerID:   ownerID,
		Data: map[string]any{
			"tier":             tier.Name,
			"routing_strategy": tier.RoutingStrategy,
		},
	})

	return dto.NewRequestResponse(req), nil
}

// buildPayload проверяет поля варианта и заполняет payload заявки
func buildPayload(in *dto.CreateRequestRequest, req *models.Request) (moderation.Submission, error) {
	missing := map[string]string{}
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing[field] = "This field is required for this request type"
		}
	}

	if in.TierName() == "" {
		missing["tier"] = "This field is required"
	}

	var sub moderation.Submission
	switch req.Variant {
	case models.VariantStandard:
		require("media_type", in.MediaType)
		require("context", in.Context)
		switch in.MediaType {
		case "photo":
			require("media_url", in.MediaURL)
		case "text":
			require("text_content", in.TextContent)
		}
		req.Standard = &models.StandardPayload{
			MediaType:   in.MediaType,
			MediaURL:    in.MediaURL,
			TextContent: in.TextContent,
			Context:     in.Context,
		}
		sub = moderation.Submission{Context: in.Context, Texts: nonEmpty(in.TextContent), MediaRefs: nonEmpty(in.MediaURL)}

	case models.VariantComparison:
		if in.OptionA == nil {
			missing["option_a"] = "This field is required for this request type"
		}
		if in.OptionB == nil {
			missing["option_b"] = "This field is required for this request type"
		}
		require("decision_context", in.DecisionContext)
		if len(missing) > 0 {
			break
		}
		req.Comparison = &models.ComparisonPayload{
			OptionA:         models.ComparisonOption(*in.OptionA),
			OptionB:         models.ComparisonOption(*in.OptionB),
			DecisionContext: in.DecisionContext,
		}
		sub = moderation.Submission{
			Context:   in.DecisionContext,
			Texts:     nonEmpty(in.OptionA.Label, in.OptionA.Description, in.OptionB.Label, in.OptionB.Description),
			MediaRefs: nonEmpty(in.OptionA.ImageURL, in.OptionB.ImageURL),
		}

	case models.VariantSplitTest:
		require("photo_a_url", in.PhotoAURL)
		require("photo_b_url", in.PhotoBURL)
		require("context", in.Context)
		req.SplitTest = &models.SplitTestPayload{
			PhotoAURL: in.PhotoAURL,
			PhotoBURL: in.PhotoBURL,
			Context:   in.Context,
		}
		sub = moderation.Submission{Context: in.Context, MediaRefs: nonEmpty(in.PhotoAURL, in.PhotoBURL)}

	default:
		missing["request_type"] = "Must be one of: standard, comparison, split_test"
	}

	if len(missing) > 0 {
		return moderation.Submission{}, apperrors.ValidationError(missing)
	}
	return sub, nil
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// ---------------- Read ----------------

func (s *requestService) GetRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.RequestResponse, error) {
	req, err := s.findAuthorized(ctx, accountID, role, requestID)
	if err != nil {
		return nil, err
	}
	return dto.NewRequestResponse(req), nil
}

// ListRequests выбирает заявки всех вариантов параллельно, сливает их
// по created_at (новые первыми) и только потом применяет пагинацию.
func (s *requestService) ListRequests(ctx context.Context, ownerID string, limit, offset int) (*dto.RequestListResponse, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	perVariant := make([][]models.Request, len(models.Variants))
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range models.Variants {
		i, variant := i, variant
		g.Go(func() error {
			rows, err := s.requestRepo.ListByOwner(gctx, ownerID, variant, offset+limit)
			if err != nil {
				return err
			}
			perVariant[i] = rows
			return nil
		})
	}
	g.Go(func() error {
		n, err := s.requestRepo.CountByOwner(gctx, ownerID)
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.InternalError(err)
	}

	var merged []models.Request
	for _, rows := range perVariant {
		merged = append(merged, rows...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID > merged[j].ID
	})

	page := []models.Request{}
	if offset < len(merged) {
		end := min(offset+limit, len(merged))
		page = merged[offset:end]
	}

	var standardIDs []string
	for _, r := range page {
		if r.Variant == models.VariantStandard {
			standardIDs = append(standardIDs, r.ID)
		}
	}
	avgs := map[string]float64{}
	if len(standardIDs) > 0 {
		var err error
		if avgs, err = s.verdictRepo.AverageRatings(ctx, standardIDs); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	items := make([]*dto.RequestListItem, 0, len(page))
	for i := range page {
		r := &page[i]
		item := &dto.RequestListItem{
			RequestResponse: dto.NewRequestResponse(r),
			VerdictPreview: dto.VerdictPreview{
				Received: r.ReceivedVerdictCount,
				Target:   r.TargetVerdictCount,
				Complete: r.Status == models.RequestStatusCompleted,
			},
		}
		if avg, ok := avgs[r.ID]; ok {
			rounded := math.Round(avg*100) / 100
			item.AvgRating = &rounded
		}
		items = append(items, item)
	}

	return &dto.RequestListResponse{
		Requests: items,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// ---------------- Cancel / Delete ----------------

// CancelRequest: кредиты не возвращаются
func (s *requestService) CancelRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) (*dto.RequestResponse, error) {
	if _, err := s.findAuthorized(ctx, accountID, role, requestID); err != nil {
		return nil, err
	}

	ok, err := s.requestRepo.Cancel(ctx, requestID)
	if err != nil {
		return nil, handleRequestError(err)
	}
	if !ok {
		return nil, apperrors.ErrRequestNotCancellable
	}

	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, handleRequestError(err)
	}
	logger.CtxInfo(ctx, "Request cancelled", "event", "request.cancelled", "request_id", requestID)
	return dto.NewRequestResponse(req), nil
}

// DeleteRequest - мягкое удаление, только для завершенных или отмененных
func (s *requestService) DeleteRequest(ctx context.Context, accountID string, role models.UserRole, requestID string) error {
	req, err := s.findAuthorized(ctx, accountID, role, requestID)
	if err != nil {
		return err
	}
	if !req.Status.IsTerminal() {
		return apperrors.ErrRequestNotDeletable
	}
	if err := s.requestRepo.SoftDelete(ctx, requestID); err != nil {
		return handleRequestError(err)
	}
	logger.CtxInfo(ctx, "Request deleted", "event", "request.deleted", "request_id", requestID)
	return nil
}

func (s *requestService) findAuthorized(ctx context.Context, accountID string, role models.UserRole, requestID string) (*models.Request, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if req.OwnerID != accountID && !role.IsAdmin() {
		return nil, apperrors.ErrRequestAccessDenied
	}
	return req, nil
}
