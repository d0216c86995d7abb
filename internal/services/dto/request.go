package dto

import (
	"math"
	"strings"
	"time"

	"verdict_backend/internal/models"
)

// ======================
// Request DTOs
// ======================

type ComparisonOptionInput struct {
	Label       string `json:"label" validate:"required,max=200"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// CreateRequestRequest - тело POST /requests. Поля варианта проверяются
// сервисом в зависимости от request_type.
type CreateRequestRequest struct {
	RequestType string `json:"request_type" validate:"omitempty,is-variant"`
	Category    string `json:"category" validate:"required,max=64"`
	Tier        string `json:"tier" validate:"omitempty,max=32"`
	RequestTier string `json:"request_tier" validate:"omitempty,max=32"` // старое имя поля

	// standard
	MediaType   string `json:"media_type" validate:"omitempty,is-media-type"`
	MediaURL    string `json:"media_url" validate:"omitempty,url,max=2048"`
	TextContent string `json:"text_content" validate:"omitempty,max=10000"`
	Context     string `json:"context" validate:"omitempty,max=5000"`

	// comparison
	OptionA         *ComparisonOptionInput `json:"option_a" validate:"omitempty"`
	OptionB         *ComparisonOptionInput `json:"option_b" validate:"omitempty"`
	DecisionContext string                 `json:"decision_context" validate:"omitempty,max=5000"`

	// split_test
	PhotoAURL string `json:"photo_a_url" validate:"omitempty,url,max=2048"`
	PhotoBURL string `json:"photo_b_url" validate:"omitempty,url,max=2048"`
}

// Variant - request_type, по умолчанию standard
func (r *CreateRequestRequest) Variant() models.RequestVariant {
	if r.RequestType == "" {
		return models.VariantStandard
	}
	return models.RequestVariant(r.RequestType)
}

// TierName - tier, либо request_tier для старых клиентов
func (r *CreateRequestRequest) TierName() string {
	if t := strings.TrimSpace(r.Tier); t != "" {
		return t
	}
	return strings.TrimSpace(r.RequestTier)
}

// ======================
// Response DTOs
// ======================

type RequestResponse struct {
	ID                   string                    `json:"id"`
	OwnerID              string                    `json:"owner_id"`
	RequestType          models.RequestVariant     `json:"request_type"`
	Status               models.RequestStatus      `json:"status"`
	Tier                 string                    `json:"tier"`
	Category             string                    `json:"category"`
	TargetVerdictCount   int                       `json:"target_verdict_count"`
	ReceivedVerdictCount int                       `json:"received_verdict_count"`
	CreditsCharged       int                       `json:"credits_charged"`
	Standard             *models.StandardPayload   `json:"standard,omitempty"`
	Comparison           *models.ComparisonPayload `json:"comparison,omitempty"`
	SplitTest            *models.SplitTestPayload  `json:"split_test,omitempty"`
	Outcome              *models.ConsensusOutcome  `json:"outcome,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
	CompletedAt          *time.Time                `json:"completed_at,omitempty"`
	CancelledAt          *time.Time                `json:"cancelled_at,omitempty"`
}

type CreateRequestResponse struct {
	Request *RequestResponse `json:"request"`
}

type VerdictPreview struct {
	Received int  `json:"received"`
	Target   int  `json:"target"`
	Complete bool `json:"complete"`
}

// RequestListItem - элемент списка заявок. avg_rating только для standard.
type RequestListItem struct {
	*RequestResponse
	VerdictPreview VerdictPreview `json:"verdict_preview"`
	AvgRating      *float64       `json:"avg_rating,omitempty"`
}

type RequestListResponse struct {
	Requests []*RequestListItem `json:"requests"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type ConsensusResponse struct {
	RequestID string                   `json:"request_id"`
	Status    models.RequestStatus     `json:"status"`
	Final     bool                     `json:"final"`
	Outcome   *models.ConsensusOutcome `json:"outcome"`
}

func NewRequestResponse(r *models.Request) *RequestResponse {
	return &RequestResponse{
		ID:                   r.ID,
		OwnerID:              r.OwnerID,
		RequestType:          r.Variant,
		Status:               r.Status,
		Tier:                 r.Tier,
		Category:             r.Category,
		TargetVerdictCount:   r.TargetVerdictCount,
		ReceivedVerdictCount: r.ReceivedVerdictCount,
		CreditsCharged:       r.CreditsCharged,
		Standard:             r.Standard,
		Comparison:           r.Comparison,
		SplitTest:            r.SplitTest,
		Outcome:              NewOutcomeResponse(r.Outcome),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		CompletedAt:          r.CompletedAt,
		CancelledAt:          r.CancelledAt,
	}
}

// NewOutcomeResponse округляет avg_rating до двух знаков для ответа.
// В БД хранится точное среднее.
func NewOutcomeResponse(o *models.ConsensusOutcome) *models.ConsensusOutcome {
	if o == nil {
		return nil
	}
	out := *o
	if o.AvgRating != nil {
		avg := math.Round(*o.AvgRating*100) / 100
		out.AvgRating = &avg
	}
	return &out
}
