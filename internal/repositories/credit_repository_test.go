package repositories

import (
	"context"
	"testing"
	"time"

	"verdict_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestCreditRepository_DebitInsufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCreditRepository(db)
	tx := NewGormTransactor(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "credit_accounts" SET .*balance.* WHERE account_id = .* AND balance >= `).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		_, err := repo.Debit(ctx, "acc-1", 4, nil)
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepository_DebitWritesLedgerEntry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCreditRepository(db)
	tx := NewGormTransactor(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "credit_accounts" SET .*balance.* WHERE account_id = .* AND balance >= `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "credit_accounts" WHERE account_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "balance", "created_at", "updated_at"}).
			AddRow("acc-1", 1, now, now))
	mock.ExpectExec(`INSERT INTO "credit_ledger_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var entry *models.CreditLedgerEntry
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		entry, err = repo.Debit(ctx, "acc-1", 4, nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerEntryDebit, entry.EntryType)
	assert.Equal(t, 4, entry.Amount)
	assert.Equal(t, 1, entry.BalanceAfter)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
