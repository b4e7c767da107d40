package credentials

import (
	"context"
	"encoding/base64"
	"time"
)

// BasicProvider authenticates with static basic-auth credentials.
type BasicProvider struct {
	header  string
	metrics *Metrics
}

// NewBasicProvider creates a basic-auth provider. The header is computed once.
func NewBasicProvider(username, password string, opts ...ProviderOption) *BasicProvider {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &BasicProvider{
		header:  BasicHeader(username, password),
		metrics: o.metrics,
	}
}

// BasicHeader returns "Basic " + base64(username:password).
func BasicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Type returns the authentication type.
func (p *BasicProvider) Type() string {
	return TypeBasic
}

// AuthHeader returns the basic-auth header. It never fails.
func (p *BasicProvider) AuthHeader(_ context.Context) (string, error) {
	p.metrics.RecordRequest(TypeBasic, "success", time.Duration(0))
	return p.header, nil
}

// Ensure BasicProvider implements Provider.
var _ Provider = (*BasicProvider)(nil)
