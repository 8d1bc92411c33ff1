package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/internal/metrics"
	"github.com/Dhoini/subscription-service/internal/service"
	"github.com/Dhoini/subscription-service/internal/webhook"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

const testWebhookSecret = "test-webhook-secret"

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// fakeWebhookService сервис вебхуков для тестов обработчика
type fakeWebhookService struct {
	err      error
	payloads [][]byte
}

func (s *fakeWebhookService) ProcessEvent(_ context.Context, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *fakeWebhookService) Reconcile(context.Context, service.ReconcileParams) (domain.Subscription, error) {
	return domain.Subscription{}, nil
}

// recordingMetrics запоминает причины отклоненных вебхуков
type recordingMetrics struct {
	metrics.NoopMetrics
	rejected []string
}

func (m *recordingMetrics) IncWebhookRejected(reason string) {
	m.rejected = append(m.rejected, reason)
}

func newWebhookRouter(t *testing.T, svc service.WebhookService) (*gin.Engine, *webhook.Verifier, *recordingMetrics) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log := newTestLogger()
	verifier := webhook.NewVerifier(testWebhookSecret, log)
	m := &recordingMetrics{}
	handler := NewWebhookHandler(svc, verifier, m, log)

	r := gin.New()
	r.POST("/webhooks/lemonsqueezy", handler.HandleWebhook)
	return r, verifier, m
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/lemonsqueezy", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleWebhookValidSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	r, verifier, m := newWebhookRouter(t, svc)

	payload := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	w := postWebhook(r, payload, verifier.Sign(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.payloads, 1)
	assert.Empty(t, m.rejected)

	// Сервис получает ровно те байты, что пришли по сети
	assert.Equal(t, payload, svc.payloads[0])
}

func TestHandleWebhookMissingSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	r, _, m := newWebhookRouter(t, svc)

	w := postWebhook(r, []byte(`{}`), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.payloads)
	assert.Equal(t, []string{"missing_signature"}, m.rejected)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	r, _, m := newWebhookRouter(t, svc)

	w := postWebhook(r, []byte(`{}`), "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.payloads)
	assert.Equal(t, []string{"invalid_signature"}, m.rejected)
}

func TestHandleWebhookTamperedPayload(t *testing.T) {
	svc := &fakeWebhookService{}
	r, verifier, m := newWebhookRouter(t, svc)

	payload := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	signature := verifier.Sign(payload)

	tampered := []byte(`{"meta":{"event_name":"subscription_updated"}}`)
	w := postWebhook(r, tampered, signature)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.payloads)
	assert.Equal(t, []string{"invalid_signature"}, m.rejected)
}

func TestHandleWebhookInvalidPayload(t *testing.T) {
	svc := &fakeWebhookService{err: fmt.Errorf("%w: malformed webhook body", domain.ErrInvalidInput)}
	r, verifier, _ := newWebhookRouter(t, svc)

	payload := []byte(`{not json`)
	w := postWebhook(r, payload, verifier.Sign(payload))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhookProcessingFailure(t *testing.T) {
	svc := &fakeWebhookService{err: domain.NewPersistenceError("reconcile", "user-1", fmt.Errorf("db down"))}
	r, verifier, _ := newWebhookRouter(t, svc)

	payload := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	w := postWebhook(r, payload, verifier.Sign(payload))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
