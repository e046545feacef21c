package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth callback outcomes.
const (
	CallbackNewUser   = "new_user"
	CallbackReturning = "returning"
	CallbackFailed    = "failed"
	CallbackNoCode    = "no_code"
)

// BusinessMetrics holds Prometheus metrics for the billing and sign-in funnels.
type BusinessMetrics struct {
	// Billing
	CheckoutSessionsCreated *prometheus.CounterVec
	CheckoutSessionsFailed  *prometheus.CounterVec
	PortalSessionsCreated   prometheus.Counter
	PortalSessionsFailed    *prometheus.CounterVec

	// Auth
	AuthCallbacks    *prometheus.CounterVec
	SessionRefreshes *prometheus.CounterVec
	SessionsRejected *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookDuplicate *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec

	// External API performance
	StripeAPILatency   *prometheus.HistogramVec
	SupabaseAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics on the default registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith registers the metrics on reg. Tests pass a fresh registry.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "remindr"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Billing
		// =======================================================================
		CheckoutSessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_sessions_created_total",
				Help:      "Hosted checkout sessions created",
			},
			[]string{"plan"},
		),
		CheckoutSessionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_sessions_failed_total",
				Help:      "Checkout session requests that did not produce a session",
			},
			[]string{"reason"}, // reason: not_configured, unauthorized, invalid_price, provider_error
		),
		PortalSessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "portal_sessions_created_total",
				Help:      "Billing portal sessions created",
			},
		),
		PortalSessionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "portal_sessions_failed_total",
				Help:      "Billing portal requests that did not produce a session",
			},
			[]string{"reason"}, // reason: unauthorized, no_customer, store_error, provider_error
		),

		// =======================================================================
		// Auth
		// =======================================================================
		AuthCallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "auth_callbacks_total",
				Help:      "Auth callback completions by outcome",
			},
			[]string{"outcome"}, // outcome: new_user, returning, failed, no_code
		),
		SessionRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "session_refreshes_total",
				Help:      "Expired sessions refreshed from cookies",
			},
			[]string{"result"}, // result: ok, failed
		),
		SessionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sessions_rejected_total",
				Help:      "Session cookies that did not resolve to a principal",
			},
			[]string{"reason"}, // reason: malformed, invalid_token, expired, upstream
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Verified payment webhooks received",
			},
			[]string{"event_type"},
		),
		WebhookProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_processed_total",
				Help:      "Payment webhooks processed successfully",
			},
			[]string{"event_type"},
		),
		WebhookDuplicate: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_duplicate_total",
				Help:      "Payment webhooks acknowledged without reprocessing",
			},
			[]string{"event_type"},
		),
		WebhookFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_failed_total",
				Help:      "Payment webhooks that failed processing",
			},
			[]string{"event_type", "error_type"},
		),

		// =======================================================================
		// External API Performance
		// =======================================================================
		StripeAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stripe_api_duration_seconds",
				Help:      "Stripe API call duration (helps differentiate app slowness from Stripe issues)",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"}, // operation: create_checkout_session, create_portal_session
		),
		SupabaseAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "supabase_api_duration_seconds",
				Help:      "Auth provider call duration",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"}, // operation: get_user, refresh_token, exchange_code
		),
	}
}

// Global instance for easy access from handlers and services.
// Nil until InitBusinessMetrics runs; the Record helpers below are nil-safe.
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// RecordCheckoutCreated counts a created checkout session.
func RecordCheckoutCreated(plan string) {
	if Business == nil {
		return
	}
	if plan == "" {
		plan = "unknown"
	}
	Business.CheckoutSessionsCreated.WithLabelValues(plan).Inc()
}

// RecordCheckoutFailed counts a checkout request that ended without a session.
func RecordCheckoutFailed(reason string) {
	if Business == nil {
		return
	}
	Business.CheckoutSessionsFailed.WithLabelValues(reason).Inc()
}

// RecordPortalCreated counts a created portal session.
func RecordPortalCreated() {
	if Business == nil {
		return
	}
	Business.PortalSessionsCreated.Inc()
}

// RecordPortalFailed counts a portal request that ended without a session.
func RecordPortalFailed(reason string) {
	if Business == nil {
		return
	}
	Business.PortalSessionsFailed.WithLabelValues(reason).Inc()
}

// RecordAuthCallback counts an auth callback by outcome.
func RecordAuthCallback(outcome string) {
	if Business == nil {
		return
	}
	Business.AuthCallbacks.WithLabelValues(outcome).Inc()
}

// RecordSessionRefresh counts a refresh attempt.
func RecordSessionRefresh(ok bool) {
	if Business == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	Business.SessionRefreshes.WithLabelValues(result).Inc()
}

// RecordSessionRejected counts a session cookie that did not resolve.
func RecordSessionRejected(reason string) {
	if Business == nil {
		return
	}
	Business.SessionsRejected.WithLabelValues(reason).Inc()
}

// RecordWebhook counts a webhook at a given stage: received, processed, duplicate.
func RecordWebhook(stage, eventType string) {
	if Business == nil {
		return
	}
	switch stage {
	case "received":
		Business.WebhookReceived.WithLabelValues(eventType).Inc()
	case "processed":
		Business.WebhookProcessed.WithLabelValues(eventType).Inc()
	case "duplicate":
		Business.WebhookDuplicate.WithLabelValues(eventType).Inc()
	}
}

// RecordWebhookFailed counts a webhook that failed processing.
func RecordWebhookFailed(eventType, errorType string) {
	if Business == nil {
		return
	}
	Business.WebhookFailed.WithLabelValues(eventType, errorType).Inc()
}

// ObserveStripe records the duration of a Stripe API call started at start.
func ObserveStripe(operation string, start time.Time) {
	if Business == nil {
		return
	}
	Business.StripeAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSupabase records the duration of an auth provider call started at start.
func ObserveSupabase(operation string, start time.Time) {
	if Business == nil {
		return
	}
	Business.SupabaseAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
