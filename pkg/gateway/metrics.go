package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for backend calls.
type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	TokenRevocations prometheus.Counter
}

// NewMetrics creates the gateway metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hcconsole",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of backend requests by method and status code",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hcconsole",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency",
			Buckets:   prometheus.DefBuckets,
		}),
		TokenRevocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hcconsole",
			Subsystem: "gateway",
			Name:      "token_revocations_total",
			Help:      "Session tokens revoked after a 401 from the backend",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestDuration, m.TokenRevocations)
	}
	return m
}

func (m *Metrics) observe(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, code).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

func (m *Metrics) revoked() {
	if m == nil {
		return
	}
	m.TokenRevocations.Inc()
}
