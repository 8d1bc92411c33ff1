package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
)

// SubscriptionHandler обрабатывает запросы управления подписками
type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler
func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		log:     log,
	}
}

// Create оформляет подписку на план
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req domain.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	response, err := h.service.Create(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Get возвращает подписку текущего пользователя
func (h *SubscriptionHandler) Get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	details, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// Update переключает план подписки
func (h *SubscriptionHandler) Update(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req domain.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	result, err := h.service.Update(c.Request.Context(), userID, req.VariantID)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel отменяет подписку текущего пользователя
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.service.Cancel(c.Request.Context(), userID); err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondError транслирует ошибки сервиса в HTTP-ответ.
// Детали внутренних ошибок наружу не уходят, только в лог.
func (h *SubscriptionHandler) respondError(c *gin.Context, userID string, err error) {
	h.log.Errorw("Subscription request failed", "userID", userID, "error", err)

	switch {
	case errors.Is(err, domain.ErrUnknownPlan), errors.Is(err, domain.ErrInvalidInput):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid plan"}, http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Subscription not found"}, http.StatusNotFound)
	case errors.Is(err, domain.ErrExternalServiceUnavailable):
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Payment provider unavailable"}, http.StatusBadGateway)
	default:
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error"}, http.StatusInternalServerError)
	}
}
