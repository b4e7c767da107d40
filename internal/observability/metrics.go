package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is implemented by the per-package metrics sets.
type Collector interface {
	MustRegister(registerer prometheus.Registerer)
}

// NewRegistry returns a private Prometheus registry carrying the Go runtime
// and process collectors plus every given metrics set.
func NewRegistry(sets ...Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)

	for _, set := range sets {
		if set != nil {
			set.MustRegister(registry)
		}
	}
	return registry
}

// MetricsHandler returns the /metrics handler for gatherer.
func MetricsHandler(gatherer prometheus.Gatherer, logger Logger) http.Handler {
	if logger == nil {
		logger = NopLogger()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:            &promErrorLogger{logger: logger},
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: 10,
		Timeout:             10 * time.Second,
		EnableOpenMetrics:   true,
	})
}

// promErrorLogger adapts Logger to the promhttp.Logger interface.
type promErrorLogger struct {
	logger Logger
}

// Println implements promhttp.Logger.
func (l *promErrorLogger) Println(v ...interface{}) {
	l.logger.Error(fmt.Sprint(v...))
}
