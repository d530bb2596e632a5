package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the server's Prometheus instruments on a private registry
// so multiple Server instances (tests included) never collide.
type metrics struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentrun",
		Name:      "runs_total",
		Help:      "Executions by final status.",
	}, []string{"status"})

	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentrun",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of executions.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	m.registry.MustRegister(m.runsTotal, m.runDuration)
	return m
}

func (m *metrics) observe(status string, d time.Duration) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}
