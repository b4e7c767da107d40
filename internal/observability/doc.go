// Package observability provides the structured logger and the Prometheus
// registry shared by the mirroring middleware, its credential provider and
// its transports.
//
// Logging is backed by zap. Components accept the Logger interface and
// default to NopLogger:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("mirror dispatched",
//	    observability.String("stream_id", "orders"),
//	)
package observability
