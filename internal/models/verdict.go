package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verdict - неизменяемая оценка одного судьи по одной заявке.
// Поля, участвующие в консенсусе, хранятся отдельными колонками,
// остальные детали варианта - в Details.
type Verdict struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID string         `gorm:"type:uuid;not null;uniqueIndex:idx_verdicts_request_judge,priority:1" json:"request_id"`
	JudgeID   string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_verdicts_request_judge,priority:2;index" json:"judge_id"`
	Variant   RequestVariant `gorm:"type:varchar(20);not null" json:"request_type"`

	Rating          *int         `gorm:"check:chk_verdicts_rating,rating IS NULL OR (rating >= 1 AND rating <= 10)" json:"rating,omitempty"`
	Tone            *VerdictTone `gorm:"type:varchar(20)" json:"tone,omitempty"`
	PreferredOption *Choice      `gorm:"type:varchar(8)" json:"preferred_option,omitempty"`
	ChosenPhoto     *Choice      `gorm:"type:varchar(8)" json:"chosen_photo,omitempty"`
	ConfidenceScore *int         `json:"confidence_score,omitempty"`

	Details          datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	Reasoning        string         `gorm:"type:text;not null" json:"reasoning"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	CreatedAt        time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (v *Verdict) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type OptionAssessment struct {
	Rating   *int   `json:"rating,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// VerdictDetails - детали, не влияющие на консенсус
type VerdictDetails struct {
	OptionA      *OptionAssessment `json:"option_a,omitempty"`
	OptionB      *OptionAssessment `json:"option_b,omitempty"`
	PhotoARating *int              `json:"photo_a_rating,omitempty"`
	PhotoBRating *int              `json:"photo_b_rating,omitempty"`
}

func (v *Verdict) SetDetails(d VerdictDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	v.Details = datatypes.JSON(raw)
	return nil
}

func (v *Verdict) DecodeDetails() (VerdictDetails, error) {
	var d VerdictDetails
	if len(v.Details) == 0 {
		return d, nil
	}
	err := json.Unmarshal(v.Details, &d)
	return d, err
}
