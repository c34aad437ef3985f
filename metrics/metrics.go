// Package metrics exposes Prometheus counters for shift and penalty events.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carwash"

var (
	once sync.Once

	shiftTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shift_transitions_total",
			Help:      "Count of shift lifecycle transitions by kind.",
		},
		[]string{"transition"},
	)

	shiftsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shifts_created_total",
			Help:      "Count of shifts created by type.",
		},
		[]string{"type"},
	)

	carsTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cars_transferred_total",
			Help:      "Count of transferred cars by class.",
		},
		[]string{"class"},
	)

	penaltiesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalties_created_total",
			Help:      "Count of staff penalties by reason.",
		},
		[]string{"reason"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Count of Telegram notifications by outcome.",
		},
		[]string{"status"},
	)

	sheetSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_syncs_total",
			Help:      "Count of spreadsheet sync runs by outcome.",
		},
		[]string{"status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(shiftTransitions, shiftsCreated, carsTransferred,
			penaltiesCreated, notificationsSent, sheetSyncs)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncShiftTransition(transition string) {
	shiftTransitions.WithLabelValues(transition).Inc()
}

func AddShiftsCreated(shiftType string, n int) {
	shiftsCreated.WithLabelValues(shiftType).Add(float64(n))
}

func IncCarTransferred(class string) {
	carsTransferred.WithLabelValues(class).Inc()
}

func IncPenaltyCreated(reason string) {
	penaltiesCreated.WithLabelValues(reason).Inc()
}

func IncNotification(ok bool) {
	status := "sent"
	if !ok {
		status = "failed"
	}
	notificationsSent.WithLabelValues(status).Inc()
}

func IncSheetSync(status string) {
	sheetSyncs.WithLabelValues(status).Inc()
}
