package lemonsqueezy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
)

// SubscriptionData объект подписки из ответа API
type SubscriptionData struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes SubscriptionAttributes `json:"attributes"`
}

// SubscriptionAttributes атрибуты подписки провайдера
type SubscriptionAttributes struct {
	StoreID     json.Number `json:"store_id"`
	CustomerID  json.Number `json:"customer_id"`
	ProductName string      `json:"product_name"`
	VariantName string      `json:"variant_name"`
	Status      string      `json:"status"`
	RenewsAt    *time.Time  `json:"renews_at"`
	EndsAt      *time.Time  `json:"ends_at"`
	Cancelled   bool        `json:"cancelled"`
}

// subscriptionEnvelope обертка ответа JSON:API
type subscriptionEnvelope struct {
	Data SubscriptionData `json:"data"`
}

// CheckoutData объект checkout-сессии из ответа API
type CheckoutData struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes CheckoutAttributes `json:"attributes"`
}

// CheckoutAttributes атрибуты checkout-сессии
type CheckoutAttributes struct {
	URL string `json:"url"`
}

type checkoutEnvelope struct {
	Data CheckoutData `json:"data"`
}

// CreateCheckoutSession создает checkout-сессию для покупки плана.
// user_id прокидывается через checkout_data.custom и возвращается
// провайдером в meta.custom_data вебхука.
func (c *Client) CreateCheckoutSession(ctx context.Context, userID string, plan domain.Plan) (*CheckoutData, error) {
	variantID, err := domain.VariantIDForPlan(plan)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"custom_price": nil,
				"product_options": map[string]any{
					"enabled_variants": []string{variantID},
					"redirect_url":     c.redirectURL,
				},
				"checkout_options": map[string]any{
					"button_color": "#2DD272",
				},
				"checkout_data": map[string]any{
					"custom": map[string]any{
						"user_id": userID,
					},
				},
				"expires_at": nil,
				"preview":    false,
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{
						"type": "stores",
						"id":   c.storeID,
					},
				},
				"variant": map[string]any{
					"data": map[string]any{
						"type": "variants",
						"id":   variantID,
					},
				},
			},
		},
	}

	var envelope checkoutEnvelope
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkouts", payload, &envelope); err != nil {
		return nil, err
	}

	c.log.Infow("Created checkout session", "userID", userID, "plan", plan, "checkoutID", envelope.Data.ID)
	return &envelope.Data, nil
}

// UpdateSubscription переключает подписку на другой вариант плана
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID, variantID string) (*SubscriptionData, error) {
	payload := map[string]any{
		"data": map[string]any{
			"type": "subscriptions",
			"id":   subscriptionID,
			"attributes": map[string]any{
				"variant_id": variantID,
			},
		},
	}

	var envelope subscriptionEnvelope
	if err := c.doRequest(ctx, http.MethodPatch, "/v1/subscriptions/"+subscriptionID, payload, &envelope); err != nil {
		return nil, err
	}

	c.log.Infow("Updated provider subscription", "subscriptionID", subscriptionID, "variantID", variantID)
	return &envelope.Data, nil
}

// CancelSubscription отменяет подписку у провайдера
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionID, nil, nil); err != nil {
		return err
	}

	c.log.Infow("Cancelled provider subscription", "subscriptionID", subscriptionID)
	return nil
}
