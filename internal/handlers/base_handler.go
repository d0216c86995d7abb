package handlers

import (
	"errors"
	"io"
	"strconv"

	"verdict_backend/internal/logger"
	"verdict_backend/internal/middleware"
	"verdict_backend/internal/models"
	"verdict_backend/internal/validator"
	"verdict_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const maxVerdictBodyBytes = 64 << 10

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// ============================================================================
// Привязка и валидация
// ============================================================================

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// ReadBody читает сырое тело с ограничением размера. Вердикты
// разбираются сервисом, после проверки статуса заявки.
func (h *BaseHandler) ReadBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxVerdictBodyBytes+1))
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to read request body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return nil, false
	}
	if len(body) > maxVerdictBodyBytes {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Request body too large"))
		return nil, false
	}
	return body, true
}

// ============================================================================
// Обработчики ошибок
// ============================================================================

func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		if appErr.HTTPCode >= 500 {
			logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		} else {
			logger.CtxWarn(ctx, "Service error",
				"code", appErr.Code,
				"error", appErr.Message,
				"details", appErr.Details,
				"path", c.Request.URL.Path,
			)
		}
		apperrors.HandleError(c, appErr)
	} else {
		logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.InternalError(err))
	}
}

// ============================================================================
// Идентичность из JWT
// ============================================================================

func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (string, bool) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		logger.CtxWarn(c.Request.Context(), "Unauthorized access: account id not found in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return "", false
	}
	return accountID, true
}

// GetIdentity - ID аккаунта и роль. Роль по умолчанию requester.
func (h *BaseHandler) GetIdentity(c *gin.Context) (string, models.UserRole, bool) {
	accountID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return "", "", false
	}
	role, ok := middleware.GetRole(c)
	if !ok {
		role = models.UserRoleRequester
	}
	return accountID, role, true
}

// ============================================================================
// Парсинг query
// ============================================================================

func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseLimitOffset: limit по умолчанию 20, не больше 100; offset >= 0
func ParseLimitOffset(c *gin.Context) (limit int, offset int) {
	const defaultLimit = 20
	const maxLimit = 100

	limit = ParseQueryInt(c, "limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = ParseQueryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
