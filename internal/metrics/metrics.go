package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmi_quotes_total",
		Help: "Total number of price quotes served.",
	})

	CheckoutSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmi_checkout_sessions_created_total",
		Help: "Total number of hosted checkout sessions successfully created.",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmi_payments_confirmed_total",
		Help: "Total number of bookings marked paid via verified webhooks.",
	})

	WebhookSignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmi_webhook_signature_failures_total",
		Help: "Total number of webhook deliveries rejected for a bad signature.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmi_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
