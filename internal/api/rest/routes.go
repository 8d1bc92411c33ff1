package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dhoini/subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/internal/webhook"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(
	cfg *config.Config,
	subscriptionService service.SubscriptionService,
	webhookService service.WebhookService,
	verifier *webhook.Verifier,
	subscriptionMetrics metrics.SubscriptionMetrics,
	registry *prometheus.Registry,
	log *logger.Logger,
) (*gin.Engine, error) {
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Инициализация обработчиков
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, log)
	webhookHandler := handlers.NewWebhookHandler(webhookService, verifier, subscriptionMetrics, log)

	authMiddleware, err := middleware.NewAuthMiddleware(cfg, log)
	if err != nil {
		return nil, err
	}

	// API подписок за аутентификацией
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.POST("", subscriptionHandler.Create)
			subscriptions.GET("", subscriptionHandler.Get)
			subscriptions.POST("/update", subscriptionHandler.Update)
			subscriptions.POST("/cancel", subscriptionHandler.Cancel)
		}
	}

	// Вебхуки на корневом уровне роутера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/lemonsqueezy", webhookHandler.HandleWebhook)
	}

	return r, nil
}
