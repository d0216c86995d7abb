package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Общие ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и авторизация
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Доменные коды: заявки, вердикты, кредиты
const (
	CodeInvalidTier                 ErrorCode = "INVALID_TIER"
	CodeInsufficientCredits         ErrorCode = "INSUFFICIENT_CREDITS"
	CodeModerationRejected          ErrorCode = "MODERATION_REJECTED"
	CodeRequestNotAcceptingVerdicts ErrorCode = "REQUEST_NOT_ACCEPTING_VERDICTS"
	CodeDuplicateVerdict            ErrorCode = "DUPLICATE_VERDICT"
	CodeInvalidVerdictShape         ErrorCode = "INVALID_VERDICT_SHAPE"
	CodeRateLimited                 ErrorCode = "RATE_LIMITED"
)
