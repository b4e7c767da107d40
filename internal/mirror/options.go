package mirror

import (
	"time"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Option is a functional option for configuring a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger for the mirror.
func WithLogger(logger observability.Logger) Option {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics for the mirror.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Mirror) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithCredentialTimeout bounds how long a detached delivery waits for its
// Authorization value.
func WithCredentialTimeout(timeout time.Duration) Option {
	return func(m *Mirror) {
		if timeout > 0 {
			m.credentialTimeout = timeout
		}
	}
}

// WithDeliveryTimeout bounds each detached delivery.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(m *Mirror) {
		if timeout > 0 {
			m.deliveryTimeout = timeout
		}
	}
}

// WithMaxBodyBytes caps how much of a request body is copied into the
// envelope. A negative value disables body capture.
func WithMaxBodyBytes(n int64) Option {
	return func(m *Mirror) {
		if n != 0 {
			m.maxBodyBytes = n
		}
	}
}

// WithClock sets the time source used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Mirror) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRequestIDGenerator replaces the UUIDv7 envelope request ID generator.
func WithRequestIDGenerator(fn func() string) Option {
	return func(m *Mirror) {
		if fn != nil {
			m.newRequestID = fn
		}
	}
}
