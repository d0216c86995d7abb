package dto

import (
	"encoding/json"
	"time"

	"verdict_backend/internal/models"
)

// ======================
// Verdict DTOs
// ======================
// Тела вердиктов декодируются строго: лишние поля (в т.ч. поля другого
// варианта) считаются ошибкой формы.

type StandardVerdictInput struct {
	Rating           *int   `json:"rating" validate:"required,min=1,max=10"`
	Tone             string `json:"tone" validate:"required,is-tone"`
	Reasoning        string `json:"reasoning" validate:"max=5000"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0"`
}

type OptionFeedbackInput struct {
	Rating   *int   `json:"rating" validate:"omitempty,min=1,max=10"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

type ComparisonVerdictInput struct {
	PreferredOption  string               `json:"preferred_option" validate:"required,is-choice"`
	ConfidenceScore  *int                 `json:"confidence_score" validate:"required,min=1,max=10"`
	OptionA          *OptionFeedbackInput `json:"option_a" validate:"omitempty"`
	OptionB          *OptionFeedbackInput `json:"option_b" validate:"omitempty"`
	Reasoning        string               `json:"reasoning" validate:"max=5000"`
	TimeSpentSeconds int                  `json:"time_spent_seconds" validate:"min=0"`
}

type SplitTestVerdictInput struct {
	ChosenPhoto      string `json:"chosen_photo" validate:"required,is-photo-choice"`
	ConfidenceScore  *int   `json:"confidence_score" validate:"required,min=1,max=10"`
	PhotoARating     *int   `json:"photo_a_rating" validate:"omitempty,min=1,max=10"`
	PhotoBRating     *int   `json:"photo_b_rating" validate:"omitempty,min=1,max=10"`
	Reasoning        string `json:"reasoning" validate:"max=5000"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0"`
}

type VerdictResponse struct {
	ID               string                `json:"id"`
	RequestID        string                `json:"request_id"`
	JudgeID          string                `json:"judge_id"`
	RequestType      models.RequestVariant `json:"request_type"`
	Rating           *int                  `json:"rating,omitempty"`
	Tone             *models.VerdictTone   `json:"tone,omitempty"`
	PreferredOption  *models.Choice        `json:"preferred_option,omitempty"`
	ChosenPhoto      *models.Choice        `json:"chosen_photo,omitempty"`
	ConfidenceScore  *int                  `json:"confidence_score,omitempty"`
	Details          json.RawMessage       `json:"details,omitempty"`
	Reasoning        string                `json:"reasoning"`
	TimeSpentSeconds int                   `json:"time_spent_seconds"`
	CreatedAt        time.Time             `json:"created_at"`
}

type SubmitVerdictResponse struct {
	Verdict          *VerdictResponse `json:"verdict"`
	RequestCompleted bool             `json:"request_completed"`
}

type VerdictListResponse struct {
	Verdicts []*VerdictResponse `json:"verdicts"`
	Total    int                `json:"total"`
}

func NewVerdictResponse(v *models.Verdict) *VerdictResponse {
	resp := &VerdictResponse{
		ID:               v.ID,
		RequestID:        v.RequestID,
		JudgeID:          v.JudgeID,
		RequestType:      v.Variant,
		Rating:           v.Rating,
		Tone:             v.Tone,
		PreferredOption:  v.PreferredOption,
		ChosenPhoto:      v.ChosenPhoto,
		ConfidenceScore:  v.ConfidenceScore,
		Reasoning:        v.Reasoning,
		TimeSpentSeconds: v.TimeSpentSeconds,
		CreatedAt:        v.CreatedAt,
	}
	if len(v.Details) > 0 {
		resp.Details = json.RawMessage(v.Details)
	}
	return resp
}
