package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditAccount - баланс аккаунта. Баланс никогда не уходит в минус,
// это гарантирует и условный UPDATE, и CHECK в БД.
type CreditAccount struct {
	AccountID string    `gorm:"type:varchar(64);primaryKey" json:"account_id"`
	Balance   int       `gorm:"not null;check:chk_credit_accounts_balance,balance >= 0" json:"balance"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// CreditLedgerEntry - одна запись на каждое изменение баланса
type CreditLedgerEntry struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    string          `gorm:"type:varchar(64);not null;index" json:"account_id"`
	EntryType    LedgerEntryType `gorm:"type:varchar(10);not null" json:"entry_type"`
	Reason       LedgerReason    `gorm:"type:varchar(20);not null" json:"reason"`
	Amount       int             `gorm:"not null;check:chk_ledger_amount,amount > 0" json:"amount"`
	BalanceAfter int             `gorm:"not null" json:"balance_after"`
	RequestID    *string         `gorm:"type:uuid;index" json:"request_id,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (e *CreditLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
