package results

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for grade evaluation.
type Metrics struct {
	evaluations    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	subjects       *prometheus.CounterVec
	excludedModels prometheus.Counter
	rejectedModels prometheus.Counter
}

// NewMetrics creates and registers evaluation metrics with the given registry.
// cacheSize, when set, is exported as a gauge.
func NewMetrics(registry *prometheus.Registry, cacheSize func() int) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grades_evaluations_total",
			Help: "Total number of grading model evaluations by kind",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grades_evaluation_duration_seconds",
			Help:    "Duration of grading model evaluations by kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		subjects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grades_subjects_evaluated_total",
			Help: "Total number of per-student evaluations by kind",
		}, []string{"kind"}),
		excludedModels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grades_excluded_models_total",
			Help: "Course-part models left out of two-tier evaluations",
		}),
		rejectedModels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grades_rejected_models_total",
			Help: "Grading models rejected by structural validation",
		}),
	}

	registry.MustRegister(m.evaluations, m.duration, m.subjects, m.excludedModels, m.rejectedModels)
	if cacheSize != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "grades_plan_cache_entries",
			Help: "Current number of compiled grading models in the plan cache",
		}, func() float64 { return float64(cacheSize()) }))
	}
	return m
}

// Evaluated records one evaluation over n subjects.
func (m *Metrics) Evaluated(kind string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(kind).Inc()
	m.subjects.WithLabelValues(kind).Add(float64(n))
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// Excluded records course-part models skipped by an evaluation.
func (m *Metrics) Excluded(n int) {
	if m == nil || n == 0 {
		return
	}
	m.excludedModels.Add(float64(n))
}

// Rejected records a model failing validation.
func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.rejectedModels.Inc()
}
