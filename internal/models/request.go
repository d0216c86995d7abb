package models

import "time"

// Request - заявка на оценку. Один вариант на строку, полезная нагрузка
// варианта лежит в своей JSON-колонке, остальные NULL.
type Request struct {
	BaseModelWithDeleted
	OwnerID  string         `gorm:"type:varchar(64);not null;index:idx_requests_owner_variant,priority:1" json:"owner_id"`
	Variant  RequestVariant `gorm:"type:varchar(20);not null;index:idx_requests_owner_variant,priority:2" json:"request_type"`
	Status   RequestStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	Tier     string         `gorm:"type:varchar(32);not null;index" json:"tier"`
	Category string         `gorm:"type:varchar(64);not null" json:"category"`

	TargetVerdictCount   int `gorm:"not null;check:chk_requests_target,target_verdict_count > 0" json:"target_verdict_count"`
	ReceivedVerdictCount int `gorm:"not null;check:chk_requests_received,received_verdict_count >= 0 AND received_verdict_count <= target_verdict_count" json:"received_verdict_count"`
	CreditsCharged       int `gorm:"not null" json:"credits_charged"`

	Standard   *StandardPayload   `gorm:"serializer:json;type:jsonb" json:"standard,omitempty"`
	Comparison *ComparisonPayload `gorm:"serializer:json;type:jsonb" json:"comparison,omitempty"`
	SplitTest  *SplitTestPayload  `gorm:"serializer:json;type:jsonb" json:"split_test,omitempty"`

	Outcome     *ConsensusOutcome `gorm:"serializer:json;type:jsonb" json:"outcome,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
}

type StandardPayload struct {
	MediaType   string `json:"media_type"` // photo | text
	MediaURL    string `json:"media_url,omitempty"`
	TextContent string `json:"text_content,omitempty"`
	Context     string `json:"context"`
}

type ComparisonOption struct {
	Label       string `json:"label"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type ComparisonPayload struct {
	OptionA         ComparisonOption `json:"option_a"`
	OptionB         ComparisonOption `json:"option_b"`
	DecisionContext string           `json:"decision_context"`
}

type SplitTestPayload struct {
	PhotoAURL string `json:"photo_a_url"`
	PhotoBURL string `json:"photo_b_url"`
	Context   string `json:"context"`
}

// VoteTally - подсчет голосов для comparison и split_test
type VoteTally struct {
	A   int `json:"A"`
	B   int `json:"B"`
	Tie int `json:"tie,omitempty"`
}

// ConsensusOutcome - итог заявки. Пишется только при финализации.
type ConsensusOutcome struct {
	Variant      RequestVariant `json:"variant"`
	VerdictCount int            `json:"verdict_count"`

	// standard: null, если ни один вердикт не содержит оценку
	AvgRating *float64 `json:"avg_rating"`

	// comparison
	WinnerOption Choice `json:"winner_option,omitempty"`

	// split_test
	WinningPhoto      Choice   `json:"winning_photo,omitempty"`
	ConsensusStrength *float64 `json:"consensus_strength,omitempty"`

	Tally      *VoteTally `json:"tally,omitempty"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Context возвращает текст для модерации и превью
func (r *Request) Context() string {
	switch r.Variant {
	case VariantStandard:
		if r.Standard != nil {
			return r.Standard.Context
		}
	case VariantComparison:
		if r.Comparison != nil {
			return r.Comparison.DecisionContext
		}
	case VariantSplitTest:
		if r.SplitTest != nil {
			return r.SplitTest.Context
		}
	}
	return ""
}
