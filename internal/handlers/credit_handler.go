package handlers

import (
	"net/http"

	"verdict_backend/internal/auth"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/middleware"
	"verdict_backend/internal/models"
	"verdict_backend/internal/services"
	"verdict_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	*BaseHandler
	creditService services.CreditService
}

func NewCreditHandler(base *BaseHandler, creditService services.CreditService) *CreditHandler {
	return &CreditHandler{
		BaseHandler:   base,
		creditService: creditService,
	}
}

func (h *CreditHandler) RegisterRoutes(r *gin.RouterGroup) {
	credits := r.Group("/credits")
	{
		credits.GET("/me", h.GetMyBalance)
		credits.GET("/me/ledger", h.GetMyLedger)
	}

	admin := r.Group("/admin/credits")
	admin.Use(middleware.RequirePermission(auth.PermCreditsGrant))
	{
		admin.POST("/grant", h.GrantCredits)
	}
}

func (h *CreditHandler) GetMyBalance(c *gin.Context) {
	accountID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.creditService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) GetMyLedger(c *gin.Context) {
	accountID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.creditService.GetLedger(c.Request.Context(), accountID, ParseQueryInt(c, "limit", 0))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GrantCredits - пополнение баланса админом (граница платежного колбэка)
func (h *CreditHandler) GrantCredits(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.GrantCreditsRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.creditService.Grant(c.Request.Context(), req.AccountID, req.Amount, models.LedgerReason(req.Reason))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "Credits granted",
		"event", "credits.granted",
		"admin_id", adminID,
		"target_account_id", req.AccountID,
		"amount", req.Amount,
	)
	c.JSON(http.StatusOK, resp)
}
