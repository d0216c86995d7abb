package services

import (
	"context"
	"errors"

	"verdict_backend/internal/logger"
	"verdict_backend/internal/metrics"
	"verdict_backend/internal/models"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/services/dto"
	"verdict_backend/pkg/apperrors"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 200
)

type CreditService interface {
	// Debit списывает amount атомарно. Вызывать внутри транзакции,
	// в которой создается то, за что списываются кредиты.
	Debit(ctx context.Context, accountID string, amount int, requestID *string) (*models.CreditLedgerEntry, error)
	// Grant - пополнение от админа или платежного колбэка
	Grant(ctx context.Context, accountID string, amount int, reason models.LedgerReason) (*dto.BalanceResponse, error)
	GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error)
	GetLedger(ctx context.Context, accountID string, limit int) (*dto.LedgerResponse, error)
}

type creditService struct {
	tx         repositories.Transactor
	creditRepo repositories.CreditRepository
}

func NewCreditService(tx repositories.Transactor, creditRepo repositories.CreditRepository) CreditService {
	return &creditService{tx: tx, creditRepo: creditRepo}
}

func (s *creditService) Debit(ctx context.Context, accountID string, amount int, requestID *string) (*models.CreditLedgerEntry, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidCreditAmount
	}

	entry, err := s.creditRepo.Debit(ctx, accountID, amount, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientCredits) {
			metrics.CreditDebits.WithLabelValues("insufficient").Inc()
			logger.CtxInfo(ctx, "Debit rejected: insufficient credits",
				"event", "credits.debit_rejected",
				"required_credits", amount,
			)
			return nil, apperrors.InsufficientCredits(amount)
		}
		metrics.CreditDebits.WithLabelValues("error").Inc()
		logger.LedgerLog(accountID, string(models.LedgerEntryDebit), amount, 0, err)
		return nil, apperrors.InternalError(err)
	}

	metrics.CreditDebits.WithLabelValues("ok").Inc()
	logger.LedgerLog(accountID, string(entry.EntryType), entry.Amount, entry.BalanceAfter, nil)
	return entry, nil
}

func (s *creditService) Grant(ctx context.Context, accountID string, amount int, reason models.LedgerReason) (*dto.BalanceResponse, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidCreditAmount
	}
	if reason == "" {
		reason = models.LedgerReasonGrant
	}

	var entry *models.CreditLedgerEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.creditRepo.Credit(ctx, accountID, amount, reason, nil)
		return err
	})
	if err != nil {
		logger.LedgerLog(accountID, string(models.LedgerEntryCredit), amount, 0, err)
		return nil, apperrors.InternalError(err)
	}

	logger.LedgerLog(accountID, string(entry.EntryType), entry.Amount, entry.BalanceAfter, nil)
	return &dto.BalanceResponse{AccountID: accountID, Balance: entry.BalanceAfter}, nil
}

// GetBalance: аккаунта без записей нет в БД, его баланс 0
func (s *creditService) GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error) {
	acct, err := s.creditRepo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return &dto.BalanceResponse{AccountID: accountID, Balance: 0}, nil
		}
		return nil, apperrors.InternalError(err)
	}
	return &dto.BalanceResponse{AccountID: acct.AccountID, Balance: acct.Balance}, nil
}

func (s *creditService) GetLedger(ctx context.Context, accountID string, limit int) (*dto.LedgerResponse, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}

	entries, err := s.creditRepo.ListEntries(ctx, accountID, limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.LedgerResponse{AccountID: accountID, Entries: make([]*dto.LedgerEntryResponse, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, dto.NewLedgerEntryResponse(&entries[i]))
	}
	return resp, nil
}
