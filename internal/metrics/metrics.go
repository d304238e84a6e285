// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BatchesCreated    prometheus.Counter
	Transfers         *prometheus.CounterVec
	TransferConflicts prometheus.Counter
	ExpensesCreated   prometheus.Counter
	DemoGenerations   prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New registers all collectors with reg. A nil registry yields
// collectors that work but are not exported.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		BatchesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "agritrace_batches_created_total",
			Help: "Batches created",
		}),
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agritrace_transfers_total",
			Help: "Completed batch transfers by transfer type",
		}, []string{"type"}),
		TransferConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "agritrace_transfer_conflicts_total",
			Help: "Transfers rejected because the batch changed concurrently",
		}),
		ExpensesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "agritrace_expenses_created_total",
			Help: "Expense submissions stored",
		}),
		DemoGenerations: f.NewCounter(prometheus.CounterOpts{
			Name: "agritrace_demo_generations_total",
			Help: "Demo expense data sets generated",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agritrace_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
