package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Default configuration values.
const (
	DefaultFetchTimeout = 5 * time.Second
	DefaultTokenTTL     = time.Hour
	BearerPrefix        = "Bearer "
)

// ClientCredentialsProvider authenticates with an OAuth2 client-credentials
// token obtained from a discovered OIDC issuer.
type ClientCredentialsProvider struct {
	config *config.AuthConfig
	key    TokenKey
	*options

	group singleflight.Group
}

// NewClientCredentialsProvider creates a client-credentials provider. A
// missing issuer is reported on each AuthHeader call, not here, so that a
// misconfigured mirror never prevents the host from starting.
func NewClientCredentialsProvider(cfg *config.AuthConfig, opts ...ProviderOption) (*ClientCredentialsProvider, error) {
	if cfg == nil {
		return nil, NewConfigError("auth", "configuration is required")
	}
	if !cfg.UsesClientCredentials() {
		return nil, NewConfigError("clientId", "client id and client secret are both required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.tokens == nil {
		o.tokens = SharedTokenCache()
	}
	if o.issuers == nil {
		o.issuers = SharedIssuerCache()
	}
	o.logger = o.logger.With(observability.String("auth_type", TypeClientCredentials))

	if _, ok := cfg.IssuerURL(); !ok {
		o.logger.Warn("neither issuer nor auth domain configured, token requests will fail")
	}

	return &ClientCredentialsProvider{config: cfg, options: o, key: tokenKey(cfg)}, nil
}

// tokenKey returns the cache key for cfg's issuer, client and audience.
func tokenKey(cfg *config.AuthConfig) TokenKey {
	issuer, _ := cfg.IssuerURL()
	return TokenKey{
		Issuer:   issuer,
		ClientID: cfg.ClientID,
		Audience: cfg.GetEffectiveAudience(),
	}
}

// Type returns the authentication type.
func (p *ClientCredentialsProvider) Type() string {
	return TypeClientCredentials
}

// AuthHeader returns "Bearer <token>", serving from cache while the token is
// more than RefreshMargin away from expiry.
func (p *ClientCredentialsProvider) AuthHeader(ctx context.Context) (string, error) {
	start := time.Now()

	if token, ok := p.tokens.Get(p.key, p.now()); ok {
		p.metrics.RecordCacheHit()
		p.metrics.RecordRequest(TypeClientCredentials, "success", time.Since(start))
		return BearerPrefix + token, nil
	}
	p.metrics.RecordCacheMiss()

	// Concurrent misses share one fetch. The shared fetch is bounded by the
	// fetch timeout; each caller additionally stops waiting when ctx ends.
	ch := p.group.DoChan("token", func() (interface{}, error) {
		if token, ok := p.tokens.Get(p.key, p.now()); ok {
			return token, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		return p.refresh(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			p.metrics.RecordRequest(TypeClientCredentials, "error", time.Since(start))
			return "", res.Err
		}
		p.metrics.RecordRequest(TypeClientCredentials, "success", time.Since(start))
		return BearerPrefix + res.Val.(string), nil
	case <-ctx.Done():
		p.metrics.RecordRequest(TypeClientCredentials, "error", time.Since(start))
		p.metrics.RecordError(TypeClientCredentials, "timeout")
		return "", NewProviderErrorWithCause(TypeClientCredentials, "token", "gave up waiting for token", ctx.Err())
	}
}

func (p *ClientCredentialsProvider) refresh(ctx context.Context) (string, error) {
	start := time.Now()

	token, expiresAt, err := p.fetchToken(ctx)
	if err != nil {
		p.metrics.RecordRefresh(TypeClientCredentials, "error", time.Since(start))
		p.logger.Error("failed to obtain access token", observability.Error(err))
		return "", err
	}

	p.tokens.Store(p.key, token, expiresAt)
	p.metrics.RecordRefresh(TypeClientCredentials, "success", time.Since(start))
	p.metrics.SetTokenExpiry(TypeClientCredentials, expiresAt)
	p.logger.Debug("access token acquired", observability.Time("expiry", expiresAt))

	return token, nil
}

func (p *ClientCredentialsProvider) fetchToken(ctx context.Context) (string, time.Time, error) {
	issuerURL, ok := p.config.IssuerURL()
	if !ok {
		p.metrics.RecordError(TypeClientCredentials, "config")
		return "", time.Time{}, NewConfigError("issuer", "issuer or authDomain is required for client credentials")
	}

	issuer, err := p.discover(ctx, issuerURL)
	if err != nil {
		return "", time.Time{}, err
	}

	endpoint := issuer.Endpoint()
	cc := clientcredentials.Config{
		ClientID:       p.config.ClientID,
		ClientSecret:   p.config.ClientSecret,
		TokenURL:       endpoint.TokenURL,
		AuthStyle:      endpoint.AuthStyle,
		EndpointParams: url.Values{"audience": {p.config.GetEffectiveAudience()}},
	}

	now := p.now()
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
	if err != nil {
		p.metrics.RecordError(TypeClientCredentials, "grant")
		return "", time.Time{}, NewProviderErrorWithCause(TypeClientCredentials, "grant",
			"client credentials grant failed", fmt.Errorf("%w: %w", ErrTokenAcquisition, err))
	}

	expiresAt := now.Add(DefaultTokenTTL)
	if secs := expiresIn(tok); secs > 0 {
		expiresAt = now.Add(time.Duration(secs) * time.Second)
	}

	return tok.AccessToken, expiresAt, nil
}

// discover returns the cached issuer or runs discovery and caches it.
func (p *ClientCredentialsProvider) discover(ctx context.Context, issuerURL string) (*oidc.Provider, error) {
	if issuer, ok := p.issuers.Get(issuerURL); ok {
		return issuer, nil
	}

	// Only the token endpoint is used, so an issuer document that spells the
	// issuer differently (for example with a trailing slash) is accepted.
	ctx = oidc.InsecureIssuerURLContext(oidc.ClientContext(ctx, p.httpClient), issuerURL)

	issuer, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		p.metrics.RecordDiscovery("error")
		p.metrics.RecordError(TypeClientCredentials, "discovery")
		return nil, NewProviderErrorWithCause(TypeClientCredentials, "discovery",
			"issuer discovery failed for "+issuerURL, fmt.Errorf("%w: %w", ErrDiscovery, err))
	}

	p.issuers.Store(issuerURL, issuer)
	p.metrics.RecordDiscovery("success")
	p.logger.Info("discovered issuer", observability.String("issuer", issuerURL))

	return issuer, nil
}

// expiresIn reads expires_in from the token response, if the provider sent one.
func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Ensure ClientCredentialsProvider implements Provider.
var _ Provider = (*ClientCredentialsProvider)(nil)
