package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/internal/webhook"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
)

const (
	// Ограничение на размер тела запроса вебхука
	maxRequestBodySize = int64(65536)

	// Заголовок подписи Lemon Squeezy
	signatureHeader = "X-Signature"
)

// WebhookHandler обрабатывает входящие вебхуки от Lemon Squeezy
type WebhookHandler struct {
	service  service.WebhookService
	verifier *webhook.Verifier
	metrics  metrics.SubscriptionMetrics
	log      *logger.Logger
}

// NewWebhookHandler создает новый экземпляр WebhookHandler
func NewWebhookHandler(svc service.WebhookService, verifier *webhook.Verifier, m metrics.SubscriptionMetrics, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:  svc,
		verifier: verifier,
		metrics:  m,
		log:      log,
	}
}

// HandleWebhook обработчик для Gin, принимающий вебхуки Lemon Squeezy.
// Подпись проверяется по сырым байтам тела до любого разбора JSON.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	// Тело читается один раз, с ограничением размера
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	defer c.Request.Body.Close()

	if err != nil {
		h.metrics.IncWebhookRejected("unreadable_body")
		h.log.Errorw("Failed to read webhook request body", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Cannot read request body"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		h.metrics.IncWebhookRejected("missing_signature")
		h.log.Warnw("Missing webhook signature header")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Missing " + signatureHeader + " header"}, http.StatusBadRequest)
		c.Abort()
		return
	}

	if !h.verifier.Verify(signature, payload) {
		h.metrics.IncWebhookRejected("invalid_signature")
		h.log.Warnw("Webhook signature verification failed")
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid signature"}, http.StatusUnauthorized)
		c.Abort()
		return
	}

	if err := h.service.ProcessEvent(ctx, payload); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.log.Warnw("Webhook event rejected", "error", err)
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Invalid webhook payload"}, http.StatusBadRequest)
			c.Abort()
			return
		}

		h.log.Errorw("Error processing webhook event", "error", err)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Internal server error processing webhook"}, http.StatusInternalServerError)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
}
