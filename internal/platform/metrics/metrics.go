// Package metrics registers the Prometheus instruments for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SignupsReceived   prometheus.Counter
	SignupsAccepted   prometheus.Counter
	SignupsRejected   prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	ProvisionOutcomes *prometheus.CounterVec
	PrefillLookups    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SignupsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registro_signups_received_total",
			Help: "Total number of signup submissions received",
		}),
		SignupsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registro_signups_accepted_total",
			Help: "Total number of signup submissions persisted",
		}),
		SignupsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registro_signups_rejected_total",
			Help: "Total number of signup submissions rejected before persistence",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_status_transitions_total",
			Help: "Application review transitions by resulting status",
		}, []string{"status"}),
		ProvisionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_lms_provision_total",
			Help: "LMS provisioning attempts by outcome",
		}, []string{"outcome"}),
		PrefillLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_prefill_lookups_total",
			Help: "Prefill authority lookups by outcome",
		}, []string{"outcome"}),
	}
}
