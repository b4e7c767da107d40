package mirror

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by Metrics.
const (
	OutcomeDispatched = "dispatched"
	OutcomeNoMatch    = "no_match"
	OutcomeAuthFailed = "auth_failed"
	OutcomeClosed     = "closed"
	OutcomePanic      = "panic"
)

var (
	sharedMetricsInstance *Metrics
	sharedMetricsOnce     sync.Once
)

// GetSharedMetrics returns the singleton mirror metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsInstance = NewMetrics("frkr_mirror")
	})
	return sharedMetricsInstance
}

// Metrics holds Prometheus metrics for the mirroring middleware.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
	inFlight         prometheus.Gauge
	bodyTruncated    prometheus.Counter
}

// NewMetrics creates a new Metrics instance. Collectors are not registered
// anywhere until MustRegister is called.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "frkr_mirror"
	}

	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "requests_total",
			Help:      "Total number of intercepted requests by mirroring outcome",
		}, []string{"outcome"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "deliveries_total",
			Help:      "Total number of completed detached deliveries",
		}, []string{"stream_id", "status"}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "delivery_duration_seconds",
			Help:      "Detached delivery duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "deliveries_in_flight",
			Help:      "Number of detached deliveries in progress",
		}),
		bodyTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "body_truncated_total",
			Help:      "Total number of request bodies truncated in the envelope",
		}),
	}
}

// RecordRequest records the mirroring outcome of an intercepted request.
func (m *Metrics) RecordRequest(outcome string) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

// RecordDelivery records a completed delivery.
func (m *Metrics) RecordDelivery(streamID, status string, duration time.Duration) {
	m.deliveriesTotal.WithLabelValues(streamID, status).Inc()
	m.deliveryDuration.Observe(duration.Seconds())
}

// RecordBodyTruncated records a body cut at the capture limit.
func (m *Metrics) RecordBodyTruncated() {
	m.bodyTruncated.Inc()
}

// MustRegister registers the metrics with the given registerer.
func (m *Metrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		m.requestsTotal,
		m.deliveriesTotal,
		m.deliveryDuration,
		m.inFlight,
		m.bodyTruncated,
	)
}
