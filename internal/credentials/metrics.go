package credentials

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sharedMetricsInstance *Metrics
	sharedMetricsOnce     sync.Once
)

// GetSharedMetrics returns the singleton credentials metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsInstance = NewMetrics("frkr_mirror")
	})
	return sharedMetricsInstance
}

// Metrics holds Prometheus metrics for credential operations.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	tokenRefreshTotal *prometheus.CounterVec
	discoveryTotal    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	tokenExpiry       *prometheus.GaugeVec
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
			Subsystem: "credentials",
			Name:      "requests_total",
			Help:      "Total number of authorization header requests",
		}, []string{"auth_type", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "request_duration_seconds",
			Help:      "Time to produce an authorization header",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"auth_type", "operation"}),
		tokenRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "token_refresh_total",
			Help:      "Total number of token fetches",
		}, []string{"auth_type", "status"}),
		discoveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "discovery_total",
			Help:      "Total number of issuer discovery round trips",
		}, []string{"status"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "errors_total",
			Help:      "Total number of credential errors",
		}, []string{"auth_type", "error_type"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "cache_hits_total",
			Help:      "Total number of token cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "cache_misses_total",
			Help:      "Total number of token cache misses",
		}),
		tokenExpiry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "token_expiry_seconds",
			Help:      "Cached token expiry as seconds since epoch",
		}, []string{"auth_type"}),
	}
}

// RecordRequest records an authorization header request.
func (m *Metrics) RecordRequest(authType, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(authType, status).Inc()
	m.requestDuration.WithLabelValues(authType, "header").Observe(duration.Seconds())
}

// RecordRefresh records a token fetch.
func (m *Metrics) RecordRefresh(authType, status string, duration time.Duration) {
	m.tokenRefreshTotal.WithLabelValues(authType, status).Inc()
	m.requestDuration.WithLabelValues(authType, "refresh").Observe(duration.Seconds())
}

// RecordDiscovery records an issuer discovery round trip.
func (m *Metrics) RecordDiscovery(status string) {
	m.discoveryTotal.WithLabelValues(status).Inc()
}

// RecordError records a credential error.
func (m *Metrics) RecordError(authType, errorType string) {
	m.errorsTotal.WithLabelValues(authType, errorType).Inc()
}

// RecordCacheHit records a token cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a token cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// SetTokenExpiry sets the token expiry timestamp.
func (m *Metrics) SetTokenExpiry(authType string, expiry time.Time) {
	m.tokenExpiry.WithLabelValues(authType).Set(float64(expiry.Unix()))
}

// MustRegister registers the metrics with the given registerer.
func (m *Metrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.tokenRefreshTotal,
		m.discoveryTotal,
		m.errorsTotal,
		m.cacheHits,
		m.cacheMisses,
		m.tokenExpiry,
	)
}
