package executor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Submitted  *prometheus.CounterVec
	Completed  *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	QueueDepth *prometheus.GaugeVec
	Pending    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlq",
			Subsystem: "engine",
			Name:      "units_submitted_total",
			Help:      "Units of work accepted by the engine.",
		}, []string{"kind"}),
		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlq",
			Subsystem: "engine",
			Name:      "units_completed_total",
			Help:      "Units of work executed, by outcome.",
		}, []string{"kind", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sqlq",
			Subsystem: "engine",
			Name:      "unit_duration_seconds",
			Help:      "Time spent executing a unit on its connection.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sqlq",
			Subsystem: "engine",
			Name:      "worker_queue_depth",
			Help:      "Units waiting in each worker queue.",
		}, []string{"worker"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sqlq",
			Subsystem: "engine",
			Name:      "completions_pending",
			Help:      "Completed units waiting for the next drain.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Submitted, m.Completed, m.Duration, m.QueueDepth, m.Pending)
	}
	return m
}

func workerLabel(id int) string {
	return strconv.Itoa(id)
}
