package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for authority requests.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medvault",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total requests issued to the records authority",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medvault",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of records authority requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.latency)
	return m
}

// ObserveRequest records one completed (or faulted) request. status is the
// numeric HTTP status, or "fault" when no response was obtained.
func (m *Metrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}
