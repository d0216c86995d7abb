package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound     = errors.New("request not found")
	ErrRequestNotAccepting = errors.New("request is not accepting verdicts")
	ErrStatusConflict      = errors.New("request status does not allow this transition")
	ErrDuplicateVerdict    = errors.New("judge already submitted a verdict for this request")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrAssignmentNotFound  = errors.New("routing assignment not found")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
