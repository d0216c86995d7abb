package models

import (
	"time"

	"github.com/lib/pq"
)

// Expert - верифицированный судья для платных тиров
type Expert struct {
	JudgeID           string         `gorm:"type:varchar(64);primaryKey" json:"judge_id"`
	DisplayName       string         `gorm:"type:varchar(128)" json:"display_name"`
	CredentialLevel   int            `gorm:"not null;check:chk_experts_credential,credential_level >= 0 AND credential_level <= 3" json:"credential_level"`
	Categories        pq.StringArray `gorm:"type:text[]" json:"categories"`
	Rating            float64        `gorm:"not null" json:"rating"`
	CompletedVerdicts int            `gorm:"not null" json:"completed_verdicts"`
	Verified          bool           `gorm:"not null;index" json:"verified"`
	Active            bool           `gorm:"not null;index" json:"active"`
	CreatedAt         time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// RoutingAssignment - результат маршрутизации заявки на пул экспертов.
// Одна строка на заявку, повторная маршрутизация ее перезаписывает.
type RoutingAssignment struct {
	BaseModel
	RequestID     string           `gorm:"type:uuid;not null;uniqueIndex" json:"request_id"`
	Tier          string           `gorm:"type:varchar(32);not null" json:"tier"`
	Strategy      string           `gorm:"type:varchar(20);not null" json:"strategy"`
	ExpertPool    pq.StringArray   `gorm:"type:text[]" json:"expert_pool"`
	Status        AssignmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	FailureReason string           `gorm:"type:text" json:"failure_reason,omitempty"`
	Attempts      int              `gorm:"not null" json:"attempts"`
}
