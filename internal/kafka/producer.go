package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

const (
	TopicSubscriptionCreated   = "subscription.created"
	TopicSubscriptionUpdated   = "subscription.updated"
	TopicSubscriptionCancelled = "subscription.cancelled"
)

// SubscriptionEvent представляет событие подписки для Kafka
type SubscriptionEvent struct {
	UserID                string                    `json:"user_id"`
	SubscriptionID        string                    `json:"subscription_id"`
	Plan                  domain.Plan               `json:"plan"`
	Status                domain.SubscriptionStatus `json:"status"`
	MonthlyCharacterLimit int                       `json:"monthly_character_limit"`
	RenewsAt              *time.Time                `json:"renews_at,omitempty"`
	Timestamp             time.Time                 `json:"timestamp"`
}

// SubscriptionProducer интерфейс для публикации событий подписок
type SubscriptionProducer interface {
	PublishSubscriptionCreated(ctx context.Context, subscription domain.Subscription) error
	PublishSubscriptionUpdated(ctx context.Context, subscription domain.Subscription) error
	PublishSubscriptionCancelled(ctx context.Context, subscription domain.Subscription) error
	Close() error
}

type kafkaSubscriptionProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaSubscriptionProducer создает новый продюсер событий подписок
func NewKafkaSubscriptionProducer(producer sarama.SyncProducer, log *logger.Logger) SubscriptionProducer {
	return &kafkaSubscriptionProducer{
		producer: producer,
		log:      log,
	}
}

// PublishSubscriptionCreated публикует событие о создании подписки
func (p *kafkaSubscriptionProducer) PublishSubscriptionCreated(ctx context.Context, subscription domain.Subscription) error {
	return p.publishEvent(ctx, TopicSubscriptionCreated, subscription)
}

// PublishSubscriptionUpdated публикует событие об обновлении подписки
func (p *kafkaSubscriptionProducer) PublishSubscriptionUpdated(ctx context.Context, subscription domain.Subscription) error {
	return p.publishEvent(ctx, TopicSubscriptionUpdated, subscription)
}

// PublishSubscriptionCancelled публикует событие об отмене подписки
func (p *kafkaSubscriptionProducer) PublishSubscriptionCancelled(ctx context.Context, subscription domain.Subscription) error {
	return p.publishEvent(ctx, TopicSubscriptionCancelled, subscription)
}

// publishEvent публикует событие подписки в Kafka.
// Ключ сообщения — user_id, чтобы все события одного пользователя
// попадали в одну партицию и сохраняли порядок.
func (p *kafkaSubscriptionProducer) publishEvent(ctx context.Context, topic string, subscription domain.Subscription) error {
	event := SubscriptionEvent{
		UserID:                subscription.UserID,
		SubscriptionID:        subscription.SubscriptionID,
		Plan:                  subscription.Plan,
		Status:                subscription.Status,
		MonthlyCharacterLimit: subscription.MonthlyCharacterLimit,
		RenewsAt:              subscription.RenewsAt,
		Timestamp:             time.Now(),
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(subscription.UserID),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}

	p.log.Info("Published subscription event to topic %s: partition=%d offset=%d",
		topic, partition, offset)

	return nil
}

// Close закрывает продюсер
func (p *kafkaSubscriptionProducer) Close() error {
	return p.producer.Close()
}

// NoopSubscriptionProducer заглушка продюсера для окружений без Kafka
type NoopSubscriptionProducer struct{}

func (NoopSubscriptionProducer) PublishSubscriptionCreated(context.Context, domain.Subscription) error {
	return nil
}

func (NoopSubscriptionProducer) PublishSubscriptionUpdated(context.Context, domain.Subscription) error {
	return nil
}

func (NoopSubscriptionProducer) PublishSubscriptionCancelled(context.Context, domain.Subscription) error {
	return nil
}

func (NoopSubscriptionProducer) Close() error { return nil }
