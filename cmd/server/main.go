package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dhoini/subscription-service/internal/api/rest"
	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/internal/integration/lemonsqueezy"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/internal/webhook"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

var log *logger.Logger

func init() {
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()
	subscriptionMetrics := metrics.NewSubscriptionMetrics(promRegistry, log)

	// Подключение к базе данных
	dbPool, err := repository.NewPostgresConnection(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	subscriptionRepo := repository.NewPostgresSubscriptionRepository(dbPool, log)

	// Кеш подписок; без Redis сервис работает напрямую с базой
	var repo repository.SubscriptionRepository = subscriptionRepo
	redisClient, err := repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Warn("Redis unavailable, running without subscription cache: %v", err)
	} else {
		defer redisClient.Close()
		repo = repository.NewCachedSubscriptionRepository(subscriptionRepo, redisClient, log)
	}

	// Журнал обработанных вебхук-событий
	journalDB, err := repository.NewJournalDB(cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect journal database: %v", err)
	}
	defer journalDB.Close()

	eventJournal := repository.NewEventJournal(journalDB, log)

	// Инициализация Kafka продюсера
	var producer kafka.SubscriptionProducer = kafka.NoopSubscriptionProducer{}
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		saramaConfig := kafka.NewSaramaConfig(kafkaConfig, log)

		syncProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, saramaConfig)
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}

		producer = kafka.NewKafkaSubscriptionProducer(syncProducer, log)
		defer producer.Close()
	}

	// Клиент платежного провайдера
	providerClient := lemonsqueezy.NewClient(lemonsqueezy.Config{
		APIKey:      cfg.LemonSqueezy.APIKey,
		StoreID:     cfg.LemonSqueezy.StoreID,
		BaseURL:     cfg.LemonSqueezy.BaseURL,
		RedirectURL: cfg.LemonSqueezy.RedirectURL,
	}, log)

	// Сервисы
	subscriptionService := service.NewSubscriptionService(
		repo, providerClient, producer, subscriptionMetrics, cfg.LemonSqueezy.RedirectURL, log)
	webhookService := service.NewWebhookService(
		repo, eventJournal, producer, subscriptionMetrics, log)

	verifier := webhook.NewVerifier(cfg.LemonSqueezy.WebhookSecret, log)

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Настройка маршрутизатора
	router, err := rest.SetupRouter(cfg, subscriptionService, webhookService, verifier, subscriptionMetrics, promRegistry, log)
	if err != nil {
		log.Fatal("Failed to setup router: %v", err)
	}

	// Создание и запуск HTTP сервера
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
