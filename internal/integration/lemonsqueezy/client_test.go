package lemonsqueezy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		APIKey:      "test-api-key",
		StoreID:     "113406",
		BaseURL:     serverURL,
		RedirectURL: "https://app.example.com/subscription",
	}, newTestLogger())
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotRequest map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.api+json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"checkout-1","type":"checkouts","attributes":{"url":"https://checkout.lemonsqueezy.com/buy/abc"}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	checkout, err := client.CreateCheckoutSession(context.Background(), "user-1", domain.PlanStarter)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.lemonsqueezy.com/buy/abc", checkout.Attributes.URL)

	// user_id уходит в checkout_data.custom и вернется в вебхуке
	data := gotRequest["data"].(map[string]any)
	attributes := data["attributes"].(map[string]any)
	custom := attributes["checkout_data"].(map[string]any)["custom"].(map[string]any)
	assert.Equal(t, "user-1", custom["user_id"])

	variantID, err := domain.VariantIDForPlan(domain.PlanStarter)
	require.NoError(t, err)
	enabled := attributes["product_options"].(map[string]any)["enabled_variants"].([]any)
	require.Len(t, enabled, 1)
	assert.Equal(t, variantID, enabled[0])

	store := data["relationships"].(map[string]any)["store"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "113406", store["id"])
}

func TestCreateCheckoutSessionUnknownPlan(t *testing.T) {
	client := newTestClient("http://localhost:0")

	_, err := client.CreateCheckoutSession(context.Background(), "user-1", domain.Plan("Enterprise"))
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
}

func TestUpdateSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/subscriptions/sub-100", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		attributes := body["data"].(map[string]any)["attributes"].(map[string]any)
		assert.Equal(t, "472366", attributes["variant_id"])

		w.Write([]byte(`{"data":{"id":"sub-100","type":"subscriptions","attributes":{"variant_name":"Pro","status":"active","renews_at":"2025-08-01T00:00:00Z","customer_id":4212360}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.UpdateSubscription(context.Background(), "sub-100", "472366")
	require.NoError(t, err)
	assert.Equal(t, "sub-100", result.ID)
	assert.Equal(t, "active", result.Attributes.Status)
	assert.Equal(t, "Pro", result.Attributes.VariantName)
	require.NotNil(t, result.Attributes.RenewsAt)
}

func TestCancelSubscription(t *testing.T) {
	var gotMethod, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":{"id":"sub-100","type":"subscriptions","attributes":{"status":"cancelled","cancelled":true}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	require.NoError(t, client.CancelSubscription(context.Background(), "sub-100"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v1/subscriptions/sub-100", gotPath)
}

func TestErrorStatusBecomesExternalServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"detail":"Invalid variant"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.UpdateSubscription(context.Background(), "sub-100", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalServiceUnavailable)

	var extErr *domain.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, http.StatusUnprocessableEntity, extErr.StatusCode)
}
