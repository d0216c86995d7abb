package memory

import (
	"context"
	"time"

	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"

	"github.com/google/uuid"
)

type CreditRepository struct {
	s *Store
}

var _ repositories.CreditRepository = (*CreditRepository)(nil)

func (r *CreditRepository) Debit(ctx context.Context, accountID string, amount int, requestID *string) (*models.CreditLedgerEntry, error) {
	defer r.s.lock(ctx)()

	acct, ok := r.s.st.accounts[accountID]
	if !ok || acct.Balance < amount {
		return nil, repositories.ErrInsufficientCredits
	}
	acct.Balance -= amount
	acct.UpdatedAt = time.Now()
	r.s.st.accounts[accountID] = acct

	return r.appendEntry(accountID, models.LedgerEntryDebit, models.LedgerReasonRequestCharge, amount, acct.Balance, requestID), nil
}

func (r *CreditRepository) Credit(ctx context.Context, accountID string, amount int, reason models.LedgerReason, requestID *string) (*models.CreditLedgerEntry, error) {
	defer r.s.lock(ctx)()

	now := time.Now()
	acct, ok := r.s.st.accounts[accountID]
	if !ok {
		acct = models.CreditAccount{AccountID: accountID, CreatedAt: now}
	}
	acct.Balance += amount
	acct.UpdatedAt = now
	r.s.st.accounts[accountID] = acct

	return r.appendEntry(accountID, models.LedgerEntryCredit, reason, amount, acct.Balance, requestID), nil
}

func (r *CreditRepository) appendEntry(accountID string, t models.LedgerEntryType, reason models.LedgerReason, amount, balance int, requestID *string) *models.CreditLedgerEntry {
	entry := models.CreditLedgerEntry{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		EntryType:    t,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: balance,
		RequestID:    requestID,
		CreatedAt:    time.Now(),
	}
	r.s.st.ledger = append(r.s.st.ledger, entry)
	return &entry
}

func (r *CreditRepository) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	defer r.s.lock(ctx)()

	acct, ok := r.s.st.accounts[accountID]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return &acct, nil
}

func (r *CreditRepository) ListEntries(ctx context.Context, accountID string, limit int) ([]models.CreditLedgerEntry, error) {
	defer r.s.lock(ctx)()

	var out []models.CreditLedgerEntry
	for i := len(r.s.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if e := r.s.st.ledger[i]; e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}
