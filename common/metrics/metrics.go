package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentinel"

// Outcome labels for webhook deliveries.
const (
	DeliveryAccepted         = "accepted"
	DeliveryDuplicate        = "duplicate_ignored"
	DeliveryInvalidSignature = "invalid_signature"
	DeliveryBadRequest       = "bad_request"
	DeliveryIgnored          = "ignored"
	DeliveryFailed           = "failed"
)

var (
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by provider and outcome.",
	}, []string{"provider", "outcome"})

	TriageResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "triage_results_total",
		Help:      "AI triage results by status and reason.",
	}, []string{"status", "reason"})

	GovernanceActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "governance_actions_total",
		Help:      "Label and comment operations sent to the issue tracker.",
	}, []string{"type", "outcome"})

	HTTPPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Handler panics recovered by route.",
	}, []string{"route"})
)
