package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// createMetricsServer creates the metrics HTTP server.
func createMetricsServer(addr string, gatherer prometheus.Gatherer, logger observability.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler(gatherer, logger))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}
