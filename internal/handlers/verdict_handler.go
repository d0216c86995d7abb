package handlers

import (
	"net/http"

	"verdict_backend/internal/auth"
	"verdict_backend/internal/middleware"
	"verdict_backend/internal/models"
	"verdict_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type VerdictHandler struct {
	*BaseHandler
	verdictService services.VerdictService
}

func NewVerdictHandler(base *BaseHandler, verdictService services.VerdictService) *VerdictHandler {
	return &VerdictHandler{
		BaseHandler:    base,
		verdictService: verdictService,
	}
}

func (h *VerdictHandler) RegisterRoutes(r *gin.RouterGroup) {
	verdicts := r.Group("/requests/:id/verdicts")
	{
		verdicts.GET("", h.ListVerdicts)

		submit := verdicts.Group("")
		submit.Use(middleware.RequirePermission(auth.PermVerdictsSubmit))
		submit.POST("/standard", h.submit(models.VariantStandard))
		submit.POST("/comparison", h.submit(models.VariantComparison))
		submit.POST("/split-test", h.submit(models.VariantSplitTest))
	}
}

// submit - тело не привязывается здесь: сервис сначала проверяет
// статус заявки и повторный вердикт, потом форму
func (h *VerdictHandler) submit(variant models.RequestVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		judgeID, ok := h.GetAndAuthorizeUserID(c)
		if !ok {
			return
		}
		body, ok := h.ReadBody(c)
		if !ok {
			return
		}

		resp, err := h.verdictService.SubmitVerdict(c.Request.Context(), judgeID, c.Param("id"), variant, body)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func (h *VerdictHandler) ListVerdicts(c *gin.Context) {
	accountID, role, ok := h.GetIdentity(c)
	if !ok {
		return
	}

	resp, err := h.verdictService.ListVerdicts(c.Request.Context(), accountID, role, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
