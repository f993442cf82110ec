package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Checkout charge metrics
	chargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_charges_total",
		Help: "Total number of one-time charge attempts",
	}, []string{
		"currency",
		"status", // finished, errored, refunded
	})

	chargeAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_charge_amount_cents_total",
		Help: "Total charged amount in cents (for revenue tracking)",
	}, []string{
		"currency",
		"status",
	})

	// Subscription lifecycle metrics
	subscriptionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_subscription_events_total",
		Help: "Total subscription lifecycle transitions",
	}, []string{
		"event",  // start, activate, cancel, fail, plan_change, quantity_change, card_update
		"status", // success, failed
	})

	// Payment processor call metrics
	processorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_calls_total",
		Help: "Total calls made to the payment processor API",
	}, []string{
		"operation",
	})

	processorCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_call_errors_total",
		Help: "Total failed calls to the payment processor API",
	}, []string{
		"operation",
	})

	processorCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "processor_call_duration_seconds",
		Help: "Duration of payment processor API calls",
		// Buckets: 100ms to 30s (typical processor round-trip times)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"operation",
	})

	// Status poll metrics
	statusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_status_polls_total",
		Help: "Total status poll requests from checkout clients",
	}, []string{
		"entity", // sale, subscription
		"state",
	})

	// Webhook ingestion metrics
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_webhook_events_total",
		Help: "Total webhook events received from the payment processor",
	}, []string{
		"event_type",
		"outcome", // handled, ignored, duplicate, failed
	})
)

// RecordCharge records a one-time charge outcome
func RecordCharge(currency, status string, amountCents int64) {
	chargesTotal.WithLabelValues(currency, status).Inc()
	chargeAmountCents.WithLabelValues(currency, status).Add(float64(amountCents))
}

// RecordSubscriptionEvent records a subscription lifecycle transition
func RecordSubscriptionEvent(event, status string) {
	subscriptionEventsTotal.WithLabelValues(event, status).Inc()
}

// TimeGatewayCall records a processor call and returns a function that
// observes its duration when invoked, intended for use with defer
func TimeGatewayCall(operation string) func() {
	start := time.Now()
	processorCallsTotal.WithLabelValues(operation).Inc()
	return func() {
		processorCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// RecordGatewayError records a failed processor call
func RecordGatewayError(operation string) {
	processorCallErrors.WithLabelValues(operation).Inc()
}

// RecordStatusPoll records a client status poll and the state it observed
func RecordStatusPoll(entity, state string) {
	statusPollsTotal.WithLabelValues(entity, state).Inc()
}

// RecordWebhookEvent records a webhook event and how it was handled
func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
