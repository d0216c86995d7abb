package handlers

import (
	"net/http"

	"verdict_backend/internal/services"
	"verdict_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	*BaseHandler
	requestService   services.RequestService
	consensusService services.ConsensusService
	rateLimit        gin.HandlerFunc
}

// NewRequestHandler: rateLimit может быть nil, тогда лимита нет
func NewRequestHandler(
	base *BaseHandler,
	requestService services.RequestService,
	consensusService services.ConsensusService,
	rateLimit gin.HandlerFunc,
) *RequestHandler {
	return &RequestHandler{
		BaseHandler:      base,
		requestService:   requestService,
		consensusService: consensusService,
		rateLimit:        rateLimit,
	}
}

// RegisterRoutes ожидает группу, уже закрытую AuthMiddleware
func (h *RequestHandler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	{
		limited := requests.Group("")
		if h.rateLimit != nil {
			limited.Use(h.rateLimit)
		}
		limited.GET("", h.ListRequests)
		limited.POST("", h.CreateRequest)

		requests.GET("/:id", h.GetRequest)
		requests.POST("/:id/cancel", h.CancelRequest)
		requests.DELETE("/:id", h.DeleteRequest)
		requests.GET("/:id/consensus", h.GetConsensus)
	}
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	accountID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRequestRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.requestService.CreateRequest(c.Request.Context(), accountID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRequestResponse{Request: resp})
}

func (h *RequestHandler) ListRequests(c *gin.Context) {
	accountID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit, offset := ParseLimitOffset(c)
	resp, err := h.requestService.ListRequests(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	accountID, role, ok := h.GetIdentity(c)
	if !ok {
		return
	}

	resp, err := h.requestService.GetRequest(c.Request.Context(), accountID, role, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": resp})
}

func (h *RequestHandler) CancelRequest(c *gin.Context) {
	accountID, role, ok := h.GetIdentity(c)
	if !ok {
		return
	}

	resp, err := h.requestService.CancelRequest(c.Request.Context(), accountID, role, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": resp})
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	accountID, role, ok := h.GetIdentity(c)
	if !ok {
		return
	}

	if err := h.requestService.DeleteRequest(c.Request.Context(), accountID, role, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) GetConsensus(c *gin.Context) {
	accountID, role, ok := h.GetIdentity(c)
	if !ok {
		return
	}

	resp, err := h.consensusService.Recompute(c.Request.Context(), accountID, role, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
