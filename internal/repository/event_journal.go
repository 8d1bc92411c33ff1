package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/Dhoini/subscription-service/pkg/logger"
)

// EventJournal журнал обработанных вебхук-событий.
// Вебхуки провайдера не несут идентификатора события, поэтому ключом
// повтора служит SHA-256 дайджест сырого тела запроса.
type EventJournal struct {
	db  *sqlx.DB
	log *logger.Logger
}

// ProcessedEvent запись журнала обработанных событий
type ProcessedEvent struct {
	ID            uuid.UUID `db:"id"`
	PayloadDigest string    `db:"payload_digest"`
	EventName     string    `db:"event_name"`
	UserID        string    `db:"user_id"`
	ProcessedAt   time.Time `db:"processed_at"`
}

// NewEventJournal создает журнал событий поверх существующего соединения
func NewEventJournal(db *sqlx.DB, log *logger.Logger) *EventJournal {
	return &EventJournal{
		db:  db,
		log: log,
	}
}

// NewJournalDB открывает соединение sqlx для журнала событий
func NewJournalDB(dsn string, log *logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}
	log.Infow("Connected to event journal database")
	return db, nil
}

// Seen сообщает, есть ли событие с таким дайджестом в журнале
func (j *EventJournal) Seen(ctx context.Context, payloadDigest string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE payload_digest = $1)`

	var exists bool
	if err := j.db.GetContext(ctx, &exists, query, payloadDigest); err != nil {
		return false, fmt.Errorf("failed to query journal: %w", err)
	}

	return exists, nil
}

// MarkProcessed регистрирует событие по дайджесту тела.
// Возвращает false, если событие с таким дайджестом уже обработано.
func (j *EventJournal) MarkProcessed(ctx context.Context, payloadDigest, eventName, userID string) (bool, error) {
	query := `
		INSERT INTO processed_webhook_events (id, payload_digest, event_name, user_id, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (payload_digest) DO NOTHING
	`

	result, err := j.db.ExecContext(ctx, query, uuid.New(), payloadDigest, eventName, userID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to journal webhook event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows count: %w", err)
	}

	if rowsAffected == 0 {
		j.log.Infow("Webhook event already journaled, treating as replay",
			"digest", payloadDigest, "eventName", eventName, "userID", userID)
		return false, nil
	}

	return true, nil
}

// RecentEvents возвращает последние записи журнала (для диагностики)
func (j *EventJournal) RecentEvents(ctx context.Context, limit int) ([]ProcessedEvent, error) {
	query := `
		SELECT id, payload_digest, event_name, user_id, processed_at
		FROM processed_webhook_events
		ORDER BY processed_at DESC
		LIMIT $1
	`

	var events []ProcessedEvent
	if err := j.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}

	return events, nil
}
