package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweepRunsTotal, requestsExpiredTotal) }

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_sweep_runs_total",
			Help: "Expiry sweeper runs, labeled by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'error', 'skipped'
	)

	requestsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_requests_expired_total",
			Help: "Payment requests moved to expired by the sweeper.",
		},
	)
)

func IncSweepRun(outcome string) {
	sweepRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddRequestsExpired(count int) {
	requestsExpiredTotal.Add(float64(count))
}
