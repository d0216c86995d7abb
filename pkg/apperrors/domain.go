package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок:
заявки, вердикты, кредиты, модерация, лимиты.
*/

// =========================================================================
// Фабричные ФУНКЦИИ (оборачивание ошибок репозитория)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidStatus - операция невозможна в текущем статусе (409)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusConflict)
}

// =========================================================================
// Фабричные ФУНКЦИИ (ошибки с параметрами)
// =========================================================================

// InsufficientCredits - на балансе меньше, чем стоит тир (402).
// required_credits уходит в ответ на верхнем уровне.
func InsufficientCredits(required int) *AppError {
	return ErrInsufficientCredits.
		WithDetails(map[string]int{"required_credits": required}).
		WithField("required_credits", required)
}

// ModerationRejected - контент отклонен модерацией (422).
// Наружу уходит только причина, без внутренностей классификатора.
func ModerationRejected(reason string) *AppError {
	return ErrModerationRejected.WithDetails(map[string]string{"reason": reason})
}

// RateLimited - превышен лимит запросов аккаунта (429)
func RateLimited(retryAfterSeconds int64) *AppError {
	return ErrRateLimited.
		WithDetails(map[string]int64{"retry_after_seconds": retryAfterSeconds}).
		WithField("retry_after_seconds", retryAfterSeconds)
}

// InvalidVerdictShape - вердикт не соответствует варианту заявки (400)
func InvalidVerdictShape(details interface{}) *AppError {
	return ErrInvalidVerdictShape.WithDetails(details)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ
// =========================================================================

// --- Requests ---

var ErrRequestNotFound = New(
	CodeNotFound,
	"request",
	"Request not found",
	http.StatusNotFound,
)

var ErrInvalidTier = New(
	CodeInvalidTier,
	"request",
	"Unknown or inactive tier",
	http.StatusBadRequest,
)

var ErrRequestNotCancellable = New(
	CodeInvalidStatus,
	"request",
	"Request can no longer be cancelled",
	http.StatusConflict,
)

// ErrRequestNotDeletable - удалять можно только завершенные или отмененные заявки
var ErrRequestNotDeletable = New(
	CodeInvalidStatus,
	"request",
	"Only completed or cancelled requests can be deleted",
	http.StatusConflict,
)

var ErrRequestAccessDenied = New(
	CodeForbidden,
	"request",
	"Access to request denied",
	http.StatusForbidden,
)

// --- Moderation ---

var ErrModerationRejected = New(
	CodeModerationRejected,
	"moderation",
	"Content rejected by moderation",
	http.StatusUnprocessableEntity,
)

// --- Verdicts ---

var ErrRequestNotAcceptingVerdicts = New(
	CodeRequestNotAcceptingVerdicts,
	"verdict",
	"Request is not accepting verdicts",
	http.StatusConflict,
)

var ErrDuplicateVerdict = New(
	CodeDuplicateVerdict,
	"verdict",
	"Verdict already submitted for this request",
	http.StatusConflict,
)

var ErrInvalidVerdictShape = New(
	CodeInvalidVerdictShape,
	"verdict",
	"Verdict payload does not match the request type",
	http.StatusBadRequest,
)

// ErrSelfVerdict - владелец не может оценивать собственную заявку
var ErrSelfVerdict = New(
	CodeForbidden,
	"verdict",
	"Cannot submit a verdict on your own request",
	http.StatusForbidden,
)

// --- Credits ---

var ErrInsufficientCredits = New(
	CodeInsufficientCredits,
	"credits",
	"Insufficient credits",
	http.StatusPaymentRequired,
)

var ErrInvalidCreditAmount = New(
	CodeValidationFailed,
	"credits",
	"Credit amount must be positive",
	http.StatusBadRequest,
)

// --- Rate limit ---

var ErrRateLimited = New(
	CodeRateLimited,
	"rate_limit",
	"Too many requests",
	http.StatusTooManyRequests,
)

// --- Auth ---

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)
