package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caucionwatch_cycles_total",
			Help: "Sampling cycles by outcome",
		},
		[]string{"status"}, // status: ok, fetch_error, input_error, conflict, error
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caucionwatch_transitions_total",
			Help: "Fired level transitions",
		},
		[]string{"term", "direction"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caucionwatch_notifications_total",
			Help: "Notification deliveries by outcome",
		},
		[]string{"status"}, // status: sent, failed, skipped_user
	)

	StateConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caucionwatch_state_conflicts_total",
			Help: "Invocations aborted on a stale state version",
		},
	)

	LastTNA = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "caucionwatch_last_tna",
			Help: "Latest observed annualized rate per term (percent)",
		},
		[]string{"term"},
	)
)
