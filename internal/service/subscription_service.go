package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/integration/lemonsqueezy"
	"github.com/Dhoini/subscription-service/internal/kafka"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/repository"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// ProviderClient интерфейс клиента платежного провайдера
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, userID string, plan domain.Plan) (*lemonsqueezy.CheckoutData, error)
	UpdateSubscription(ctx context.Context, subscriptionID, variantID string) (*lemonsqueezy.SubscriptionData, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// SubscriptionService интерфейс сервиса управления подписками
type SubscriptionService interface {
	// Create оформляет подписку: checkout для нового пользователя,
	// смена плана для активной записи, resume для отмененной записи того же плана
	Create(ctx context.Context, userID string, planID string) (domain.SubscriptionResponse, error)

	// Get возвращает представление подписки пользователя
	Get(ctx context.Context, userID string) (domain.SubscriptionDetails, error)

	// Update переключает план у провайдера; локальное состояние
	// обновится асинхронно через вебхук
	Update(ctx context.Context, userID string, variantID string) (*lemonsqueezy.SubscriptionData, error)

	// Cancel отменяет подписку у провайдера и локально
	Cancel(ctx context.Context, userID string) error
}

type subscriptionService struct {
	repo        repository.SubscriptionRepository
	provider    ProviderClient
	producer    kafka.SubscriptionProducer
	metrics     metrics.SubscriptionMetrics
	log         *logger.Logger
	redirectURL string
}

// NewSubscriptionService создает новый сервис управления подписками
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	provider ProviderClient,
	producer kafka.SubscriptionProducer,
	m metrics.SubscriptionMetrics,
	redirectURL string,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:        repo,
		provider:    provider,
		producer:    producer,
		metrics:     m,
		log:         log,
		redirectURL: redirectURL,
	}
}

// Create оформляет подписку на план
func (s *subscriptionService) Create(ctx context.Context, userID string, planID string) (domain.SubscriptionResponse, error) {
	plan := domain.Plan(planID)

	// Покупаемый план обязан иметь вариант у провайдера
	variantID, err := domain.VariantIDForPlan(plan)
	if err != nil {
		s.log.Warnw("Requested plan is not purchasable", "userID", userID, "plan", planID)
		return domain.SubscriptionResponse{}, err
	}

	subscription, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.SubscriptionResponse{}, domain.NewPersistenceError("create", userID, err)
	}

	if err == nil {
		switch {
		case subscription.IsActive():
			// Активная запись: смена плана через провайдера
			result, err := s.Update(ctx, userID, variantID)
			if err != nil {
				return domain.SubscriptionResponse{}, err
			}
			return domain.SubscriptionResponse{
				Success:      true,
				Subscription: result,
				RedirectURL:  s.redirectURL,
			}, nil

		case subscription.Status == domain.SubscriptionStatusCancelled && subscription.Plan == plan:
			// Отмененная запись того же плана: возобновление
			result, err := s.resume(ctx, subscription, plan, variantID)
			if err != nil {
				return domain.SubscriptionResponse{}, err
			}
			return domain.SubscriptionResponse{
				Success:      true,
				Subscription: result,
				RedirectURL:  s.redirectURL,
			}, nil
		}
	}

	// Новая подписка: внешний checkout
	checkout, err := s.provider.CreateCheckoutSession(ctx, userID, plan)
	if err != nil {
		s.metrics.IncProviderCall("checkout", "error")
		return domain.SubscriptionResponse{}, err
	}
	s.metrics.IncProviderCall("checkout", "ok")

	return domain.SubscriptionResponse{
		Success:     true,
		RedirectURL: checkout.Attributes.URL,
	}, nil
}

// Get возвращает подписку пользователя; отсутствие записи или неактивная
// запись означают неявный бесплатный тариф
func (s *subscriptionService) Get(ctx context.Context, userID string) (domain.SubscriptionDetails, error) {
	subscription, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FreeTierDetails(time.Now()), nil
		}
		return domain.SubscriptionDetails{}, domain.NewPersistenceError("get", userID, err)
	}

	if !subscription.IsActive() {
		return domain.FreeTierDetails(time.Now()), nil
	}

	return subscription.Details(), nil
}

// Update переключает план подписки у провайдера.
// Локальные поля plan/status/limit здесь сознательно не трогаются:
// источником истины для них служит последующий вебхук.
func (s *subscriptionService) Update(ctx context.Context, userID string, variantID string) (*lemonsqueezy.SubscriptionData, error) {
	subscription, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("subscription", userID)
		}
		return nil, domain.NewPersistenceError("update", userID, err)
	}

	result, err := s.provider.UpdateSubscription(ctx, subscription.SubscriptionID, variantID)
	if err != nil {
		s.metrics.IncProviderCall("update", "error")
		s.log.Errorw("Provider subscription update failed",
			"userID", userID, "subscriptionID", subscription.SubscriptionID, "error", err)
		return nil, err
	}
	s.metrics.IncProviderCall("update", "ok")

	return result, nil
}

// Cancel отменяет подписку. Локальный статус меняется только после
// успешного вызова провайдера; план и лимит остаются прежними.
func (s *subscriptionService) Cancel(ctx context.Context, userID string) error {
	subscription, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewNotFoundError("subscription", userID)
		}
		return domain.NewPersistenceError("cancel", userID, err)
	}

	if err := s.provider.CancelSubscription(ctx, subscription.SubscriptionID); err != nil {
		s.metrics.IncProviderCall("cancel", "error")
		s.log.Errorw("Provider subscription cancel failed",
			"userID", userID, "subscriptionID", subscription.SubscriptionID, "error", err)
		return err
	}
	s.metrics.IncProviderCall("cancel", "ok")

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, userID, domain.SubscriptionStatusCancelled, now); err != nil {
		return domain.NewPersistenceError("cancel", userID, err)
	}

	if s.producer != nil {
		subscription.Status = domain.SubscriptionStatusCancelled
		subscription.UpdatedAt = now
		if err := s.producer.PublishSubscriptionCancelled(ctx, subscription); err != nil {
			s.log.Errorw("Failed to publish cancellation event", "userID", userID, "error", err)
		}
	}

	s.log.Infow("Cancelled subscription", "userID", userID, "subscriptionID", subscription.SubscriptionID)
	return nil
}

// resume возобновляет отмененную подписку того же плана.
// В отличие от Update здесь локальная запись обновляется сразу из ответа
// провайдера: пользователь ждет подтверждения возобновления.
func (s *subscriptionService) resume(ctx context.Context, subscription domain.Subscription, plan domain.Plan, variantID string) (*lemonsqueezy.SubscriptionData, error) {
	result, err := s.provider.UpdateSubscription(ctx, subscription.SubscriptionID, variantID)
	if err != nil {
		s.metrics.IncProviderCall("update", "error")
		return nil, err
	}
	s.metrics.IncProviderCall("update", "ok")

	limit, err := domain.CharacterLimitForPlan(plan)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	subscription.Plan = plan
	subscription.Status = domain.NormalizeStatus(result.Attributes.Status)
	subscription.MonthlyCharacterLimit = limit
	subscription.RenewsAt = result.Attributes.RenewsAt
	subscription.UpdatedAt = now

	if _, err := s.repo.Upsert(ctx, subscription); err != nil {
		return nil, domain.NewPersistenceError("resume", subscription.UserID, err)
	}

	s.log.Infow("Resumed subscription", "userID", subscription.UserID, "plan", plan)
	return result, nil
}
