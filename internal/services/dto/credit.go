package dto

import (
	"time"

	"verdict_backend/internal/models"
)

type GrantCreditsRequest struct {
	AccountID string `json:"account_id" validate:"required,max=64"`
	Amount    int    `json:"amount" validate:"required,min=1,max=100000"`
	Reason    string `json:"reason" validate:"omitempty,oneof=grant refund"`
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int    `json:"balance"`
}

type LedgerEntryResponse struct {
	ID           string                 `json:"id"`
	EntryType    models.LedgerEntryType `json:"entry_type"`
	Reason       models.LedgerReason    `json:"reason"`
	Amount       int                    `json:"amount"`
	BalanceAfter int                    `json:"balance_after"`
	RequestID    *string                `json:"request_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type LedgerResponse struct {
	AccountID string                 `json:"account_id"`
	Entries   []*LedgerEntryResponse `json:"entries"`
}

func NewLedgerEntryResponse(e *models.CreditLedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:           e.ID,
		EntryType:    e.EntryType,
		Reason:       e.Reason,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		RequestID:    e.RequestID,
		CreatedAt:    e.CreatedAt,
	}
}
