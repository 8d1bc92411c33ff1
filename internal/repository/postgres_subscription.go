package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

// PostgresSubscriptionRepository реализация репозитория подписок через PostgreSQL
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

// NewPostgresConnection создает пул соединений с базой данных
func NewPostgresConnection(ctx context.Context, dsn string, log *logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Infow("Connected to PostgreSQL")
	return pool, nil
}

// GetByUserID возвращает подписку по ID пользователя из базы данных
func (r *PostgresSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (domain.Subscription, error) {
	query := `
		SELECT
			user_id, customer_id, subscription_id, plan, status,
			monthly_character_limit, renews_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`

	var subscription domain.Subscription
	var renewsAt *time.Time

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&subscription.UserID,
		&subscription.CustomerID,
		&subscription.SubscriptionID,
		&subscription.Plan,
		&subscription.Status,
		&subscription.MonthlyCharacterLimit,
		&renewsAt,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, domain.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("failed to get subscription: %w", err)
	}

	subscription.RenewsAt = renewsAt

	return subscription, nil
}

// Upsert атомарно создает или перезаписывает запись пользователя одним запросом.
// Блокировка строки в PostgreSQL сериализует конкурентные обновления одной
// записи; user_id, customer_id и created_at при обновлении не перезаписываются.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, subscription domain.Subscription) (domain.Subscription, error) {
	query := `
		INSERT INTO subscriptions (
			user_id, customer_id, subscription_id, plan, status,
			monthly_character_limit, renews_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (user_id) DO UPDATE SET
			subscription_id = EXCLUDED.subscription_id,
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			monthly_character_limit = EXCLUDED.monthly_character_limit,
			renews_at = EXCLUDED.renews_at,
			updated_at = EXCLUDED.updated_at
		RETURNING
			user_id, customer_id, subscription_id, plan, status,
			monthly_character_limit, renews_at, created_at, updated_at
	`

	var saved domain.Subscription
	var renewsAt *time.Time

	err := r.db.QueryRow(
		ctx,
		query,
		subscription.UserID,
		subscription.CustomerID,
		subscription.SubscriptionID,
		subscription.Plan,
		subscription.Status,
		subscription.MonthlyCharacterLimit,
		subscription.RenewsAt,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Scan(
		&saved.UserID,
		&saved.CustomerID,
		&saved.SubscriptionID,
		&saved.Plan,
		&saved.Status,
		&saved.MonthlyCharacterLimit,
		&renewsAt,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)

	if err != nil {
		return domain.Subscription{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	saved.RenewsAt = renewsAt

	return saved, nil
}

// UpdateStatus меняет статус и updated_at существующей записи
func (r *PostgresSubscriptionRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, updatedAt time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE user_id = $3
	`

	result, err := r.db.Exec(ctx, query, status, updatedAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
