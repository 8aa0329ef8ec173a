package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records workflow runs and the purchases they trigger.
// A nil *WorkflowMetrics is valid and records nothing.
type WorkflowMetrics struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	purchases prometheus.Counter
	units     prometheus.Counter
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return nil
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_runs_total",
		Help: "Workflow runs by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "warehouse_run_duration_seconds",
		Help:    "Duration of workflow runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	purchases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_purchases_total",
		Help: "Purchase actions applied to inventory.",
	})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_purchased_units_total",
		Help: "Units added to inventory by purchases.",
	})
	reg.MustRegister(runs, duration, purchases, units)
	return &WorkflowMetrics{
		runs:      runs,
		duration:  duration,
		purchases: purchases,
		units:     units,
	}
}

func (m *WorkflowMetrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *WorkflowMetrics) ObservePurchase(quantity int) {
	if m == nil {
		return
	}
	m.purchases.Inc()
	m.units.Add(float64(quantity))
}
