// Package metrics records operation outcomes with Prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roster_injector"

// Recorder counts operations by status and tracks their latency. Each
// Recorder owns its registry so CLI runs and tests do not share state.
type Recorder struct {
	reg      *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds a Recorder with a private registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
	r.reg.MustRegister(r.total, r.duration)
	return r
}

// Observe records one operation outcome.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Gatherer exposes the registry, e.g. for an HTTP handler.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
