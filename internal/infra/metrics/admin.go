package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminActionsTotal, adminNotificationsTotal) }

var (
	adminActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_actions_total",
			Help: "Tracks admin API and CLI actions.",
		},
		[]string{"action", "status"}, // status: 'ok', 'unauthorized', 'failed'
	)

	adminNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_notifications_total",
			Help: "Notifications sent to admin chats, by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

func IncAdminAction(action, status string) {
	adminActionsTotal.WithLabelValues(norm(action), norm(status)).Inc()
}

func IncAdminNotification(kind, result string) {
	adminNotificationsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
