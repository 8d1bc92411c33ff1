package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// EventJournal интерфейс журнала обработанных событий
type EventJournal interface {
	// Seen сообщает, было ли тело с таким дайджестом уже обработано
	Seen(ctx context.Context, payloadDigest string) (bool, error)

	// MarkProcessed регистрирует событие; false — событие уже обработано
	MarkProcessed(ctx context.Context, payloadDigest, eventName, userID string) (bool, error)
}

// WebhookService интерфейс сервиса обработки вебхуков
type WebhookService interface {
	// ProcessEvent применяет проверенное тело вебхука к локальному состоянию.
	// Подпись должна быть проверена вызывающей стороной до разбора JSON.
	ProcessEvent(ctx context.Context, payload []byte) error

	// Reconcile создает или обновляет запись подписки пользователя
	Reconcile(ctx context.Context, params ReconcileParams) (domain.Subscription, error)
}

// ReconcileParams данные события подписки для сверки
type ReconcileParams struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
	Plan           domain.Plan
	Status         domain.SubscriptionStatus
	RenewsAt       *time.Time
}

type webhookService struct {
	repo     repository.SubscriptionRepository
	journal  EventJournal
	producer kafka.SubscriptionProducer
	metrics  metrics.SubscriptionMetrics
	log      *logger.Logger
}

// NewWebhookService создает новый сервис обработки вебхуков
func NewWebhookService(
	repo repository.SubscriptionRepository,
	journal EventJournal,
	producer kafka.SubscriptionProducer,
	m metrics.SubscriptionMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		repo:     repo,
		journal:  journal,
		producer: producer,
		metrics:  m,
		log:      log,
	}
}

// ProcessEvent разбирает конверт события и запускает сверку.
// Нераспознанные имена событий подтверждаются без изменений состояния —
// провайдер может добавлять новые типы событий.
func (s *webhookService) ProcessEvent(ctx context.Context, payload []byte) error {
	var event domain.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.metrics.IncWebhookRejected("malformed_body")
		return fmt.Errorf("%w: malformed webhook body", domain.ErrInvalidInput)
	}

	s.metrics.IncWebhookReceived(event.Meta.EventName)

	if !event.IsSubscriptionChange() {
		s.metrics.IncWebhookIgnored(event.Meta.EventName)
		s.log.Infow("Ignoring webhook event", "eventName", event.Meta.EventName)
		return nil
	}

	if err := event.Validate(); err != nil {
		s.metrics.IncWebhookRejected("missing_fields")
		s.log.Warnw("Webhook event failed validation", "eventName", event.Meta.EventName, "error", err)
		return err
	}

	userID := event.Meta.CustomData.UserID

	// Защита от повторной доставки: ключом служит дайджест сырого тела.
	// В журнал событие попадает только после успешной сверки, иначе
	// повторная доставка после сбоя была бы отброшена как реплей.
	// Отказ журнала не блокирует обработку — сверка идемпотентна.
	var payloadDigest string
	if s.journal != nil {
		digest := sha256.Sum256(payload)
		payloadDigest = hex.EncodeToString(digest[:])

		seen, err := s.journal.Seen(ctx, payloadDigest)
		if err != nil {
			s.log.Warnw("Event journal unavailable, processing without replay guard",
				"eventName", event.Meta.EventName, "userID", userID, "error", err)
		} else if seen {
			s.metrics.IncWebhookReplayed(event.Meta.EventName)
			return nil
		}
	}

	subscription, err := s.Reconcile(ctx, ReconcileParams{
		UserID:         userID,
		CustomerID:     event.Data.Attributes.CustomerID.String(),
		SubscriptionID: event.Data.ID,
		Plan:           domain.Plan(event.Data.Attributes.VariantName),
		Status:         domain.NormalizeStatus(event.Data.Attributes.Status),
		RenewsAt:       event.Data.Attributes.RenewsAt,
	})
	if err != nil {
		return err
	}

	if s.journal != nil {
		firstSeen, err := s.journal.MarkProcessed(ctx, payloadDigest, event.Meta.EventName, userID)
		if err != nil {
			s.log.Warnw("Failed to journal webhook event",
				"eventName", event.Meta.EventName, "userID", userID, "error", err)
		} else if !firstSeen {
			// Параллельная доставка того же тела уже опубликовала событие
			s.metrics.IncWebhookReplayed(event.Meta.EventName)
			return nil
		}
	}

	s.publish(ctx, event.Meta.EventName, subscription)

	return nil
}

// Reconcile применяет данные события к записи пользователя.
// Запись создается при первом событии и дальше только перезаписывается;
// лимит символов всегда вычисляется из плана. Операция идемпотентна:
// повторное применение того же события не меняет итоговое состояние.
func (s *webhookService) Reconcile(ctx context.Context, params ReconcileParams) (domain.Subscription, error) {
	started := time.Now()

	limit, err := domain.CharacterLimitForPlan(params.Plan)
	if err != nil {
		s.log.Warnw("Webhook carries unknown plan, rejecting",
			"userID", params.UserID, "plan", params.Plan)
		var errs domain.ValidationErrors
		errs.Add("plan", fmt.Sprintf("unknown plan %q", params.Plan))
		return domain.Subscription{}, errs
	}

	now := time.Now()
	subscription := domain.Subscription{
		UserID:                params.UserID,
		CustomerID:            params.CustomerID,
		SubscriptionID:        params.SubscriptionID,
		Plan:                  params.Plan,
		Status:                params.Status,
		MonthlyCharacterLimit: limit,
		RenewsAt:              params.RenewsAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	saved, err := s.repo.Upsert(ctx, subscription)
	if err != nil {
		s.log.Errorw("Failed to persist subscription",
			"userID", params.UserID, "subscriptionID", params.SubscriptionID, "error", err)
		return domain.Subscription{}, domain.NewPersistenceError("reconcile", params.UserID, err)
	}

	s.metrics.IncReconciled(string(saved.Plan))
	s.metrics.ObserveReconcileDuration(time.Since(started).Seconds())

	s.log.Infow("Reconciled subscription",
		"userID", saved.UserID, "plan", saved.Plan, "status", saved.Status)

	return saved, nil
}

// publish отправляет событие в Kafka; отказ брокера не откатывает сверку
func (s *webhookService) publish(ctx context.Context, eventName string, subscription domain.Subscription) {
	if s.producer == nil {
		return
	}

	var err error
	switch eventName {
	case domain.WebhookEventSubscriptionCreated:
		err = s.producer.PublishSubscriptionCreated(ctx, subscription)
	case domain.WebhookEventSubscriptionUpdated:
		err = s.producer.PublishSubscriptionUpdated(ctx, subscription)
	}

	if err != nil {
		s.log.Errorw("Failed to publish subscription event",
			"eventName", eventName, "userID", subscription.UserID, "error", err)
	}
}
