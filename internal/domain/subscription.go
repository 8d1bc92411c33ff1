package domain

import (
	"strings"
	"time"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOnTrial   SubscriptionStatus = "on_trial"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"

	// SubscriptionStatusFree виртуальный статус для пользователей без записи
	SubscriptionStatusFree SubscriptionStatus = "free"
)

// NormalizeStatus приводит статус к каноническому написанию.
// Провайдер и старые записи используют оба варианта "canceled"/"cancelled",
// каноническим считается "cancelled".
func NormalizeStatus(raw string) SubscriptionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "canceled" {
		s = string(SubscriptionStatusCancelled)
	}
	return SubscriptionStatus(s)
}

// Plan название тарифного плана
type Plan string

const (
	PlanFree    Plan = "Free"
	PlanStarter Plan = "Starter"
	PlanPro     Plan = "Pro"
)

// FreeMonthlyCharacterLimit лимит символов для пользователей без подписки
const FreeMonthlyCharacterLimit = 10000

// planCharacterLimits таблица месячных лимитов символов по планам.
// Лимит всегда вычисляется отсюда и никогда не задается независимо от плана.
var planCharacterLimits = map[Plan]int{
	PlanFree:    FreeMonthlyCharacterLimit,
	PlanStarter: 100000,
	PlanPro:     1000000,
}

// planVariantIDs идентификаторы вариантов планов на стороне провайдера
var planVariantIDs = map[Plan]string{
	PlanStarter: "472351",
	PlanPro:     "472366",
}

// CharacterLimitForPlan возвращает месячный лимит символов для плана.
// Для неизвестного плана возвращает ErrUnknownPlan.
func CharacterLimitForPlan(plan Plan) (int, error) {
	limit, ok := planCharacterLimits[plan]
	if !ok {
		return 0, ErrUnknownPlan
	}
	return limit, nil
}

// VariantIDForPlan возвращает ID варианта провайдера для покупаемого плана
func VariantIDForPlan(plan Plan) (string, error) {
	variantID, ok := planVariantIDs[plan]
	if !ok {
		return "", ErrUnknownPlan
	}
	return variantID, nil
}

// PlanUpgrade описывает доступный апгрейд плана
type PlanUpgrade struct {
	Plan        Plan   `json:"plan"`
	Description string `json:"description"`
}

// AvailableUpgrades возвращает список планов, на которые можно перейти с текущего
func AvailableUpgrades(current Plan) []PlanUpgrade {
	switch current {
	case PlanStarter:
		return []PlanUpgrade{
			{Plan: PlanPro, Description: "For expert users"},
		}
	case PlanPro:
		return []PlanUpgrade{}
	default:
		return []PlanUpgrade{
			{Plan: PlanStarter, Description: "Good for beginners"},
			{Plan: PlanPro, Description: "For expert users"},
		}
	}
}

// Subscription представляет собой запись подписки пользователя.
// На одного пользователя существует не более одной записи; запись никогда
// не удаляется, отмена — это смена статуса.
type Subscription struct {
	UserID                string             `json:"user_id"`
	CustomerID            string             `json:"customer_id"`
	SubscriptionID        string             `json:"subscription_id"`
	Plan                  Plan               `json:"plan"`
	Status                SubscriptionStatus `json:"status"`
	MonthlyCharacterLimit int                `json:"monthly_character_limit"`
	RenewsAt              *time.Time         `json:"renews_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// IsActive сообщает, действует ли подписка
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// SubscriptionRequest представляет запрос на создание подписки
type SubscriptionRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

// UpdateSubscriptionRequest представляет запрос на смену плана
type UpdateSubscriptionRequest struct {
	VariantID string `json:"variantId" binding:"required"`
}

// SubscriptionResponse ответ на создание/смену подписки
type SubscriptionResponse struct {
	Success      bool   `json:"success"`
	Subscription any    `json:"subscription,omitempty"`
	RedirectURL  string `json:"redirectUrl,omitempty"`
}

// SubscriptionDetails представление подписки для клиента
type SubscriptionDetails struct {
	Plan                  Plan               `json:"plan"`
	Status                SubscriptionStatus `json:"status"`
	RenewsAt              *time.Time         `json:"renewsAt,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
	MonthlyCharacterLimit int                `json:"monthlyCharacterLimit"`
	AvailableUpgrades     []PlanUpgrade      `json:"availableUpgrades"`
}

// FreeTierDetails представление для пользователя без записи подписки
func FreeTierDetails(now time.Time) SubscriptionDetails {
	return SubscriptionDetails{
		Plan:                  PlanFree,
		Status:                SubscriptionStatusFree,
		MonthlyCharacterLimit: FreeMonthlyCharacterLimit,
		CreatedAt:             now,
		UpdatedAt:             now,
		AvailableUpgrades:     AvailableUpgrades(PlanFree),
	}
}

// Details строит клиентское представление записи подписки
func (s *Subscription) Details() SubscriptionDetails {
	return SubscriptionDetails{
		Plan:                  s.Plan,
		Status:                s.Status,
		RenewsAt:              s.RenewsAt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
		MonthlyCharacterLimit: s.MonthlyCharacterLimit,
		AvailableUpgrades:     AvailableUpgrades(s.Plan),
	}
}
