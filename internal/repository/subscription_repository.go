package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// SubscriptionRepository интерфейс репозитория подписок.
// На одного пользователя хранится не более одной записи.
type SubscriptionRepository interface {
	// GetByUserID возвращает запись подписки пользователя
	GetByUserID(ctx context.Context, userID string) (domain.Subscription, error)

	// Upsert атомарно создает или перезаписывает запись пользователя.
	// При обновлении user_id, customer_id и created_at не меняются.
	Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error)

	// UpdateStatus меняет только статус и updated_at существующей записи
	UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, updatedAt time.Time) error
}

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	subscriptions map[string]domain.Subscription
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make(map[string]domain.Subscription),
		log:           log,
	}
}

// GetByUserID возвращает подписку по ID пользователя
func (r *InMemorySubscriptionRepository) GetByUserID(ctx context.Context, userID string) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subscription, exists := r.subscriptions[userID]
	if !exists {
		return domain.Subscription{}, domain.ErrNotFound
	}

	return subscription, nil
}

// Upsert создает или перезаписывает запись пользователя.
// Мьютекс сериализует конкурентные обновления одной записи.
func (r *InMemorySubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.subscriptions[subscription.UserID]
	if exists {
		// Неизменяемые поля существующей записи
		subscription.CreatedAt = existing.CreatedAt
		subscription.CustomerID = existing.CustomerID
	}

	r.subscriptions[subscription.UserID] = subscription

	return subscription, nil
}

// UpdateStatus меняет статус существующей записи
func (r *InMemorySubscriptionRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, updatedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subscription, exists := r.subscriptions[userID]
	if !exists {
		return domain.ErrNotFound
	}

	subscription.Status = status
	subscription.UpdatedAt = updatedAt
	r.subscriptions[userID] = subscription

	return nil
}
