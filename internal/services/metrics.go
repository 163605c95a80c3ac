package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// factsTotal counts parsed facts by codec strategy and merge decision.
	factsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annualbot_facts_total",
			Help: "Parsed inspection facts by strategy and merge decision.",
		},
		[]string{"strategy", "decision"},
	)

	// remindersTotal counts reminder dispatches by result (sent|failed).
	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annualbot_reminders_total",
			Help: "Reminder dispatch attempts by result.",
		},
		[]string{"result"},
	)

	// storeErrorsTotal counts state store failures by operation (load|save).
	storeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annualbot_store_errors_total",
			Help: "State store failures by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(factsTotal, remindersTotal, storeErrorsTotal)
}
