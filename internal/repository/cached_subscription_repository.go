package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

const (
	// Префикс ключей кеша подписок
	subscriptionKeyPrefix = "subscription:user:"

	// TTL для кеша
	defaultCacheTTL = 15 * time.Minute
)

// CachedSubscriptionRepository оборачивает репозиторий подписок кешем Redis.
// Чтения идут через кеш, любая запись инвалидирует ключ пользователя —
// следующая выборка придет из хранилища.
type CachedSubscriptionRepository struct {
	inner  SubscriptionRepository
	client *redis.Client
	log    *logger.Logger
}

// NewRedisClient создает клиент Redis и проверяет соединение
func NewRedisClient(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis", "addr", addr)
	return client, nil
}

// NewCachedSubscriptionRepository создает кеширующую обертку над репозиторием
func NewCachedSubscriptionRepository(inner SubscriptionRepository, client *redis.Client, log *logger.Logger) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{
		inner:  inner,
		client: client,
		log:    log,
	}
}

func cacheKey(userID string) string {
	return subscriptionKeyPrefix + userID
}

// GetByUserID возвращает подписку из кеша или из хранилища
func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (domain.Subscription, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if err == nil {
		var cached domain.Subscription
		if err := json.Unmarshal(data, &cached); err == nil {
			r.log.Debugw("Subscription cache hit", "userID", userID)
			return cached, nil
		}
		// Битый кеш не должен ломать чтение
		r.log.Warnw("Failed to unmarshal cached subscription, falling back to store", "userID", userID)
	} else if err != redis.Nil {
		r.log.Warnw("Redis get failed, falling back to store", "userID", userID, "error", err)
	}

	subscription, err := r.inner.GetByUserID(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}

	r.cache(ctx, subscription)
	return subscription, nil
}

// Upsert пишет в хранилище и обновляет кеш
func (r *CachedSubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	saved, err := r.inner.Upsert(ctx, subscription)
	if err != nil {
		return domain.Subscription{}, err
	}

	r.cache(ctx, saved)
	return saved, nil
}

// UpdateStatus пишет в хранилище и инвалидирует кеш
func (r *CachedSubscriptionRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, updatedAt time.Time) error {
	if err := r.inner.UpdateStatus(ctx, userID, status, updatedAt); err != nil {
		return err
	}

	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache", "userID", userID, "error", err)
	}
	return nil
}

// cache сохраняет запись в Redis; ошибки кеша только логируются
func (r *CachedSubscriptionRepository) cache(ctx context.Context, subscription domain.Subscription) {
	data, err := json.Marshal(subscription)
	if err != nil {
		r.log.Warnw("Failed to marshal subscription for caching", "userID", subscription.UserID, "error", err)
		return
	}

	if err := r.client.Set(ctx, cacheKey(subscription.UserID), data, defaultCacheTTL).Err(); err != nil {
		r.log.Warnw("Failed to cache subscription", "userID", subscription.UserID, "error", err)
	}
}
