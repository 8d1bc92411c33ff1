package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhoini/subscription-service/pkg/logger"
)

// SubscriptionMetrics интерфейс для метрик подписок
type SubscriptionMetrics interface {
	IncWebhookReceived(eventName string)
	IncWebhookRejected(reason string)
	IncWebhookIgnored(eventName string)
	IncWebhookReplayed(eventName string)
	IncReconciled(plan string)
	ObserveReconcileDuration(seconds float64)
	IncProviderCall(operation, result string)
}

type subscriptionMetrics struct {
	log               *logger.Logger
	webhooksReceived  *prometheus.CounterVec
	webhooksRejected  *prometheus.CounterVec
	webhooksIgnored   *prometheus.CounterVec
	webhooksReplayed  *prometheus.CounterVec
	reconciled        *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	providerCalls     *prometheus.CounterVec
}

// NewSubscriptionMetrics создает новые метрики подписок
func NewSubscriptionMetrics(registry *prometheus.Registry, log *logger.Logger) SubscriptionMetrics {
	webhooksReceived := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "The total number of received webhook events",
		},
		[]string{"event"},
	)

	webhooksRejected := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_rejected_total",
			Help: "The total number of rejected webhook requests",
		},
		[]string{"reason"},
	)

	webhooksIgnored := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_ignored_total",
			Help: "The total number of acknowledged but unprocessed webhook events",
		},
		[]string{"event"},
	)

	webhooksReplayed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_replayed_total",
			Help: "The total number of webhook deliveries skipped as replays",
		},
		[]string{"event"},
	)

	reconciled := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_reconciled_total",
			Help: "The total number of reconciled subscription records",
		},
		[]string{"plan"},
	)

	reconcileDuration := promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subscription_reconcile_duration_seconds",
			Help:    "Duration of subscription reconciliation",
			Buckets: prometheus.DefBuckets,
		},
	)

	providerCalls := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "The total number of calls to the payment provider API",
		},
		[]string{"operation", "result"},
	)

	return &subscriptionMetrics{
		log:               log,
		webhooksReceived:  webhooksReceived,
		webhooksRejected:  webhooksRejected,
		webhooksIgnored:   webhooksIgnored,
		webhooksReplayed:  webhooksReplayed,
		reconciled:        reconciled,
		reconcileDuration: reconcileDuration,
		providerCalls:     providerCalls,
	}
}

// IncWebhookReceived увеличивает счетчик полученных вебхуков
func (m *subscriptionMetrics) IncWebhookReceived(eventName string) {
	m.webhooksReceived.WithLabelValues(eventName).Inc()
}

// IncWebhookRejected увеличивает счетчик отклоненных вебхуков
func (m *subscriptionMetrics) IncWebhookRejected(reason string) {
	m.webhooksRejected.WithLabelValues(reason).Inc()
}

// IncWebhookIgnored увеличивает счетчик проигнорированных событий
func (m *subscriptionMetrics) IncWebhookIgnored(eventName string) {
	m.webhooksIgnored.WithLabelValues(eventName).Inc()
}

// IncWebhookReplayed увеличивает счетчик повторных доставок
func (m *subscriptionMetrics) IncWebhookReplayed(eventName string) {
	m.webhooksReplayed.WithLabelValues(eventName).Inc()
}

// IncReconciled увеличивает счетчик примененных сверок
func (m *subscriptionMetrics) IncReconciled(plan string) {
	m.reconciled.WithLabelValues(plan).Inc()
}

// ObserveReconcileDuration записывает длительность сверки
func (m *subscriptionMetrics) ObserveReconcileDuration(seconds float64) {
	m.reconcileDuration.Observe(seconds)
}

// IncProviderCall увеличивает счетчик вызовов провайдера
func (m *subscriptionMetrics) IncProviderCall(operation, result string) {
	m.providerCalls.WithLabelValues(operation, result).Inc()
}

// NoopMetrics заглушка метрик для тестов
type NoopMetrics struct{}

func (NoopMetrics) IncWebhookReceived(string)          {}
func (NoopMetrics) IncWebhookRejected(string)          {}
func (NoopMetrics) IncWebhookIgnored(string)           {}
func (NoopMetrics) IncWebhookReplayed(string)          {}
func (NoopMetrics) IncReconciled(string)               {}
func (NoopMetrics) ObserveReconcileDuration(float64)   {}
func (NoopMetrics) IncProviderCall(string, string)     {}
