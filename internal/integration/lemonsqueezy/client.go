package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

const (
	contentTypeJSONAPI = "application/vnd.api+json"

	defaultRequestTimeout = 30 * time.Second
)

// Client представляет клиент для работы с API Lemon Squeezy
type Client struct {
	baseURL     string
	apiKey      string
	storeID     string
	redirectURL string
	httpClient  *http.Client
	log         *logger.Logger
}

// Config конфигурация для клиента Lemon Squeezy
type Config struct {
	APIKey      string
	StoreID     string
	BaseURL     string
	RedirectURL string
}

// NewClient создает новый клиент Lemon Squeezy
func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.lemonsqueezy.com"
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		storeID:     cfg.StoreID,
		redirectURL: cfg.RedirectURL,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		log:         log,
	}
}

// doRequest выполняет запрос к API и декодирует ответ в out (если out != nil).
// Ответы вне диапазона 2xx превращаются в ExternalServiceError.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", contentTypeJSONAPI)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSONAPI)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Lemon Squeezy request failed", "method", method, "path", path, "error", err)
		return domain.NewExternalServiceError("lemonsqueezy", "request_failed", "provider request failed", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewExternalServiceError("lemonsqueezy", "read_failed", "failed to read provider response", resp.StatusCode, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Errorw("Lemon Squeezy returned error status",
			"method", method, "path", path, "status", resp.StatusCode, "body", string(respBody))
		return domain.NewExternalServiceError(
			"lemonsqueezy",
			fmt.Sprintf("http_%d", resp.StatusCode),
			"provider returned error status",
			resp.StatusCode,
			nil,
		)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.NewExternalServiceError("lemonsqueezy", "decode_failed", "failed to decode provider response", resp.StatusCode, err)
		}
	}

	return nil
}
