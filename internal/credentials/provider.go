package credentials

import (
	"context"
	"net/http"
	"time"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Authentication type constants.
const (
	TypeClientCredentials = "client_credentials"
	TypeBasic             = "basic"
)

// Provider produces an Authorization header value for the ingestion endpoint.
type Provider interface {
	// Type returns the authentication type.
	Type() string

	// AuthHeader returns the full header value, e.g. "Bearer abc".
	AuthHeader(ctx context.Context) (string, error)
}

// ProviderOption is a functional option for configuring providers.
type ProviderOption func(*options)

type options struct {
	logger       observability.Logger
	metrics      *Metrics
	httpClient   *http.Client
	tokens       *TokenCache
	issuers      *IssuerCache
	now          func() time.Time
	fetchTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:       observability.NopLogger(),
		metrics:      GetSharedMetrics(),
		httpClient:   &http.Client{Timeout: DefaultFetchTimeout},
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// WithLogger sets the logger for the provider.
func WithLogger(logger observability.Logger) ProviderOption {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics for the provider.
func WithMetrics(metrics *Metrics) ProviderOption {
	return func(o *options) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithHTTPClient sets the HTTP client used for discovery and token requests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTokenCache replaces the process-wide token cache.
func WithTokenCache(cache *TokenCache) ProviderOption {
	return func(o *options) {
		o.tokens = cache
	}
}

// WithIssuerCache replaces the process-wide issuer cache.
func WithIssuerCache(cache *IssuerCache) ProviderOption {
	return func(o *options) {
		o.issuers = cache
	}
}

// WithClock sets the time source used for token expiry.
func WithClock(now func() time.Time) ProviderOption {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithFetchTimeout bounds discovery plus token grant on a cache miss.
func WithFetchTimeout(timeout time.Duration) ProviderOption {
	return func(o *options) {
		if timeout > 0 {
			o.fetchTimeout = timeout
		}
	}
}

// NewProvider creates the provider selected by cfg: client credentials when
// both client ID and secret are set, basic auth otherwise. A nil cfg yields
// basic auth with default credentials.
func NewProvider(cfg *config.AuthConfig, opts ...ProviderOption) (Provider, error) {
	if cfg.UsesClientCredentials() {
		return NewClientCredentialsProvider(cfg, opts...)
	}
	return NewBasicProvider(cfg.GetEffectiveUsername(), cfg.GetEffectivePassword(), opts...), nil
}
