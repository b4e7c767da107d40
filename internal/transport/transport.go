package transport

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/grpc"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Transport names as reported by Name.
const (
	NameHTTP = config.TransportHTTP
	NameGRPC = config.TransportGRPC
)

// Transport delivers envelopes to the ingestion endpoint.
type Transport interface {
	// Send delivers env with the given Authorization value. It returns once
	// the endpoint has accepted or rejected the envelope, or ctx ends.
	Send(ctx context.Context, env *Envelope, authHeader string) error

	// Name returns the transport name.
	Name() string

	// Close releases connections held by the transport.
	Close() error
}

// Option is a functional option for configuring transports.
type Option func(*options)

type options struct {
	logger     observability.Logger
	metrics    *Metrics
	httpClient *http.Client
	dialOpts   []grpc.DialOption
}

func defaultOptions() *options {
	return &options{
		logger:  observability.NopLogger(),
		metrics: GetSharedMetrics(),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for the transport.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics for the transport.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithHTTPClient sets the HTTP client used by HTTPTransport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithDialOptions adds dial options used by GRPCTransport.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOpts = append(o.dialOpts, opts...)
	}
}

// New creates the transport selected by cfg.Transport, wrapped in a circuit
// breaker when cfg.CircuitBreaker is enabled. A nil cfg yields the HTTP
// transport against the default ingestion URL.
func New(cfg *config.MirrorConfig, opts ...Option) (Transport, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var t Transport
	switch cfg.Transport {
	case "", config.TransportHTTP:
		t = NewHTTPTransport(valueOrDefault(cfg.IngestURL, config.DefaultIngestURL), opts...)
	case config.TransportGRPC:
		t = NewGRPCTransport(valueOrDefault(cfg.GRPCAddress, config.DefaultGRPCAddress), opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}

	if cb := cfg.CircuitBreaker; cb != nil && cb.Enabled {
		t = WithCircuitBreaker(t, BreakerSettings{
			Threshold: cb.Threshold,
			Timeout:   cb.Timeout.Duration(),
		}, opts...)
	}

	return t, nil
}

func valueOrDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
