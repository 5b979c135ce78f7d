package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Payment intents created.",
	})

	IntentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intent_transitions_total",
		Help: "Terminal payment intent transitions by target state and trigger.",
	}, []string{"to", "trigger"})

	IntentsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_swept_total",
		Help: "Pending payment intents expired by the sweeper.",
	}, []string{"policy"})

	IntentsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payment_intents_pending",
		Help: "Payment intents currently pending, refreshed on every sweep.",
	})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_deliveries_total",
		Help: "Webhook delivery sequences by outcome.",
	}, []string{"outcome"})

	WebhookDeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_webhook_delivery_duration_seconds",
		Help:    "Wall time of a webhook delivery sequence, retries included.",
		Buckets: prometheus.DefBuckets,
	})
)
