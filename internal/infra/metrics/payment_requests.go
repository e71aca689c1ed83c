package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentRequestsCreatedTotal,
		paymentRequestTransitionsTotal,
		paymentRequestTransitionsRejectedTotal,
		paymentRequestsCompletedAmountTotal,
		activationsTotal,
		changeFeedListeners,
	)
}

var (
	paymentRequestsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_created_total",
			Help: "Payment requests created, by payment type.",
		},
		[]string{"type"},
	)

	paymentRequestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_request_transitions_total",
			Help: "Committed status transitions, by source and target status.",
		},
		[]string{"from", "to"},
	)

	paymentRequestTransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_request_transitions_rejected_total",
			Help: "Transitions refused, by reason ('illegal_edge', 'conflict', 'incomplete_details').",
		},
		[]string{"reason"},
	)

	paymentRequestsCompletedAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_completed_amount_total",
			Help: "Sum of completed request amounts in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Subscription activation attempts, by result ('activated', 'duplicate').",
		},
		[]string{"result"},
	)

	changeFeedListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_feed_listeners",
			Help: "Currently registered payment request listeners on this instance.",
		},
	)
)

func IncRequestCreated(paymentType string) {
	paymentRequestsCreatedTotal.WithLabelValues(norm(paymentType)).Inc()
}

func IncTransition(from, to string) {
	paymentRequestTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncTransitionRejected(reason string) {
	paymentRequestTransitionsRejectedTotal.WithLabelValues(norm(reason)).Inc()
}

func AddCompletedAmount(currency string, amount int64) {
	paymentRequestsCompletedAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncActivation(result string) {
	activationsTotal.WithLabelValues(norm(result)).Inc()
}

func AddListeners(delta int) {
	changeFeedListeners.Add(float64(delta))
}
