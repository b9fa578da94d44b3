package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visacrm_notifications_total",
			Help: "Notification attempts by outcome",
		},
		[]string{"outcome"}, // sent|skipped|failed
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visacrm_notify_runs_total",
			Help: "Notification runs by result",
		},
		[]string{"result"}, // completed|aborted|error
	)

	CustomersImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visacrm_customers_imported_total",
			Help: "Spreadsheet rows committed by result",
		},
		[]string{"result"}, // imported|duplicate|invalid|error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		NotificationsTotal,
		RunsTotal,
		CustomersImportedTotal,
	)
}
