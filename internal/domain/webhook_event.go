package domain

import (
	"encoding/json"
	"time"
)

// Имена событий вебхуков провайдера
const (
	WebhookEventSubscriptionCreated = "subscription_created"
	WebhookEventSubscriptionUpdated = "subscription_updated"
)

// WebhookEvent типизированный конверт события вебхука.
// Разбирается один раз на границе, чтобы остальной код не зависел
// от формы JSON провайдера.
type WebhookEvent struct {
	Meta WebhookMeta `json:"meta"`
	Data WebhookData `json:"data"`
}

// WebhookMeta метаданные события
type WebhookMeta struct {
	EventName  string            `json:"event_name"`
	CustomData WebhookCustomData `json:"custom_data"`
}

// WebhookCustomData пользовательские данные, проброшенные через checkout
type WebhookCustomData struct {
	UserID string `json:"user_id"`
}

// WebhookData объект подписки внутри события
type WebhookData struct {
	ID         string            `json:"id"`
	Attributes WebhookAttributes `json:"attributes"`
}

// WebhookAttributes атрибуты подписки провайдера
type WebhookAttributes struct {
	VariantName string      `json:"variant_name"`
	Status      string      `json:"status"`
	RenewsAt    *time.Time  `json:"renews_at"`
	CustomerID  json.Number `json:"customer_id"`
}

// IsSubscriptionChange сообщает, требует ли событие сверки локального состояния.
// Остальные события подтверждаются без изменений состояния.
func (e *WebhookEvent) IsSubscriptionChange() bool {
	switch e.Meta.EventName {
	case WebhookEventSubscriptionCreated, WebhookEventSubscriptionUpdated:
		return true
	}
	return false
}

// Validate проверяет обязательные поля события подписки
func (e *WebhookEvent) Validate() error {
	var errs ValidationErrors

	if e.Meta.EventName == "" {
		errs.Add("meta.event_name", "is required")
	}
	if e.Meta.CustomData.UserID == "" {
		errs.Add("meta.custom_data.user_id", "is required")
	}
	if e.Data.ID == "" {
		errs.Add("data.id", "is required")
	}
	if e.Data.Attributes.VariantName == "" {
		errs.Add("data.attributes.variant_name", "is required")
	}
	if e.Data.Attributes.Status == "" {
		errs.Add("data.attributes.status", "is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
