package transport

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sharedMetricsInstance *Metrics
	sharedMetricsOnce     sync.Once
)

// GetSharedMetrics returns the singleton transport metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsInstance = NewMetrics("frkr_mirror")
	})
	return sharedMetricsInstance
}

// Metrics holds Prometheus metrics for envelope delivery.
type Metrics struct {
	sendsTotal         *prometheus.CounterVec
	sendDuration       *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
	breakerRejections  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance. Collectors are not registered
// anywhere until MustRegister is called.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "frkr_mirror"
	}

	return &Metrics{
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "sends_total",
			Help:      "Total number of envelope deliveries",
		}, []string{"transport", "status"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "send_duration_seconds",
			Help:      "Envelope delivery duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
		breakerRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "circuit_breaker_rejections_total",
			Help:      "Total number of deliveries rejected by an open circuit breaker",
		}, []string{"name"}),
	}
}

// RecordSend records a delivery attempt.
func (m *Metrics) RecordSend(transport, status string, duration time.Duration) {
	m.sendsTotal.WithLabelValues(transport, status).Inc()
	m.sendDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(name, from, to string) {
	m.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordBreakerRejection records a delivery rejected by an open breaker.
func (m *Metrics) RecordBreakerRejection(name string) {
	m.breakerRejections.WithLabelValues(name).Inc()
}

// MustRegister registers the metrics with the given registerer.
func (m *Metrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		m.sendsTotal,
		m.sendDuration,
		m.breakerTransitions,
		m.breakerRejections,
	)
}
