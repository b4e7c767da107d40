package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Default circuit breaker settings.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// BreakerSettings configures WithCircuitBreaker.
type BreakerSettings struct {
	// Name identifies the breaker in logs and metrics. Defaults to the
	// wrapped transport's name.
	Name string

	// Threshold is the minimum number of requests in an interval before the
	// failure ratio can trip the breaker.
	Threshold int

	// Timeout is how long the breaker stays open, and the length of the
	// counting interval while closed.
	Timeout time.Duration
}

// BreakerTransport short-circuits sends while the ingestion endpoint is failing.
type BreakerTransport struct {
	next    Transport
	name    string
	cb      *gobreaker.CircuitBreaker
	logger  observability.Logger
	metrics *Metrics
}

// WithCircuitBreaker wraps next so that once half of at least Threshold sends
// in an interval fail, further sends fail immediately with ErrCircuitOpen
// until Timeout has passed.
func WithCircuitBreaker(next Transport, settings BreakerSettings, opts ...Option) *BreakerTransport {
	o := applyOptions(opts)

	if settings.Name == "" {
		settings.Name = next.Name()
	}
	if settings.Threshold <= 0 {
		settings.Threshold = DefaultBreakerThreshold
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultBreakerTimeout
	}

	b := &BreakerTransport{
		next:    next,
		name:    settings.Name,
		logger:  o.logger.With(observability.String("breaker", settings.Name)),
		metrics: o.metrics,
	}

	threshold := safeIntToUint32(settings.Threshold)

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: threshold,
		Interval:    settings.Timeout,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			b.metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return b
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Name returns the wrapped transport's name.
func (b *BreakerTransport) Name() string {
	return b.next.Name()
}

// State returns the current breaker state.
func (b *BreakerTransport) State() gobreaker.State {
	return b.cb.State()
}

// Send delivers env through the wrapped transport unless the breaker is open.
func (b *BreakerTransport) Send(ctx context.Context, env *Envelope, authHeader string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, env, authHeader)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.RecordBreakerRejection(b.name)
		b.logger.Debug("mirror delivery short-circuited",
			observability.String("stream_id", env.StreamID),
			observability.String("request_id", env.Request.RequestID),
		)
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// Close closes the wrapped transport.
func (b *BreakerTransport) Close() error {
	return b.next.Close()
}

// Ensure BreakerTransport implements Transport.
var _ Transport = (*BreakerTransport)(nil)
