package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the fetch cache collectors.
type Metrics struct {
	requests      *prometheus.CounterVec
	failures      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	inflight      prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "fetch_cache",
			Name:      "requests_total",
			Help:      "Fetch cache lookups broken down by endpoint and hit/miss.",
		}, []string{"endpoint", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "fetch_cache",
			Name:      "failures_total",
			Help:      "Backend calls that failed and were not cached.",
		}, []string{"endpoint"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "fetch_cache",
			Name:      "invalidations_total",
			Help:      "Cache invalidations broken down by scope.",
		}, []string{"scope"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "approvals",
			Subsystem: "fetch_cache",
			Name:      "inflight_requests",
			Help:      "Backend calls currently in flight.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.failures, m.invalidations, m.inflight)
	}
	return m
}

func (m *Metrics) recordLookup(endpoint string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.requests.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) recordFailure(endpoint string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) recordInvalidate(scope string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(scope).Inc()
}

func (m *Metrics) trackInflight(delta float64) {
	if m == nil {
		return
	}
	m.inflight.Add(delta)
}
