package repositories

import (
	"context"
	"errors"

	"verdict_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditRepository interface {
	// Debit списывает amount, только если баланса хватает.
	// Должен вызываться внутри транзакции вместе с записью в журнал.
	Debit(ctx context.Context, accountID string, amount int, requestID *string) (*models.CreditLedgerEntry, error)
	// Credit пополняет баланс. Upsert, чтение баланса и запись в журнал
	// должны идти в одной транзакции.
	Credit(ctx context.Context, accountID string, amount int, reason models.LedgerReason, requestID *string) (*models.CreditLedgerEntry, error)
	GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error)
	ListEntries(ctx context.Context, accountID string, limit int) ([]models.CreditLedgerEntry, error)
}

type GormCreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

func (r *GormCreditRepository) Debit(ctx context.Context, accountID string, amount int, requestID *string) (*models.CreditLedgerEntry, error) {
	db := conn(ctx, r.db)

	// Проверка и списание одним условным UPDATE: два параллельных
	// списания не могут оба пройти по одному и тому же балансу.
	res := db.Model(&models.CreditAccount{}).
		Where("account_id = ? AND balance >= ?", accountID, amount).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientCredits
	}

	var acct models.CreditAccount
	if err := db.First(&acct, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}

	entry := &models.CreditLedgerEntry{
		AccountID:    accountID,
		EntryType:    models.LedgerEntryDebit,
		Reason:       models.LedgerReasonRequestCharge,
		Amount:       amount,
		BalanceAfter: acct.Balance,
		RequestID:    requestID,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *GormCreditRepository) Credit(ctx context.Context, accountID string, amount int, reason models.LedgerReason, requestID *string) (*models.CreditLedgerEntry, error) {
	db := conn(ctx, r.db)

	acct := models.CreditAccount{AccountID: accountID, Balance: amount}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("credit_accounts.balance + ?", amount),
			"updated_at": gorm.Expr("NOW()"),
		}),
	}).Create(&acct).Error
	if err != nil {
		return nil, err
	}

	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&acct, "account_id = ?", accountID).Error; err != nil {
		return nil, err
	}

	entry := &models.CreditLedgerEntry{
		AccountID:    accountID,
		EntryType:    models.LedgerEntryCredit,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: acct.Balance,
		RequestID:    requestID,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *GormCreditRepository) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	var acct models.CreditAccount
	err := conn(ctx, r.db).First(&acct, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (r *GormCreditRepository) ListEntries(ctx context.Context, accountID string, limit int) ([]models.CreditLedgerEntry, error) {
	var out []models.CreditLedgerEntry
	err := conn(ctx, r.db).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
