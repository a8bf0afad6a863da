// Package metrics provides Prometheus metrics for databucket
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for databucket
type Metrics struct {
	// Data operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Rule pipeline metrics
	RuleParseFailuresTotal   *prometheus.CounterVec
	RuleCompileFailuresTotal *prometheus.CounterVec

	// Reservation metrics
	ReservationsTotal    *prometheus.CounterVec
	ReservedRecordsTotal prometheus.Counter

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// New creates all metrics registered against the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databucket_operations_total",
			Help: "Total number of data operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "databucket_operation_duration_seconds",
			Help:    "Duration of data operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.RuleParseFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databucket_rule_parse_failures_total",
			Help: "Total number of rule trees rejected by the parser",
		},
		[]string{"code"},
	)

	m.RuleCompileFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databucket_rule_compile_failures_total",
			Help: "Total number of rule trees rejected by the compiler",
		},
		[]string{"code"},
	)

	m.ReservationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databucket_reservations_total",
			Help: "Total number of reservation attempts",
		},
		[]string{"outcome"},
	)

	m.ReservedRecordsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "databucket_reserved_records_total",
			Help: "Total number of records claimed by reservations",
		},
	)

	m.CacheHitsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "databucket_cache_hits_total",
			Help: "Total number of record cache hits",
		},
	)

	m.CacheMissesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "databucket_cache_misses_total",
			Help: "Total number of record cache misses",
		},
	)

	return m
}

// RecordOperation records a completed data operation.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReservation records a reservation attempt and its claimed rows.
func (m *Metrics) RecordReservation(outcome string, claimed int) {
	m.ReservationsTotal.WithLabelValues(outcome).Inc()
	m.ReservedRecordsTotal.Add(float64(claimed))
}
