// Package credentials produces the Authorization header sent with every
// mirrored request.
//
// Two providers exist:
//
//   - ClientCredentials: OAuth2 client-credentials grant against an OIDC
//     issuer. The issuer is discovered once per process and the access token
//     is cached until 60 seconds before it expires, so cache hits never touch
//     the network.
//   - Basic: "Basic base64(user:pass)". Never fails, never touches the network.
//
// NewProvider picks client credentials when both a client ID and secret are
// configured, and basic auth otherwise:
//
//	provider, err := credentials.NewProvider(&cfg.Auth,
//	    credentials.WithLogger(logger),
//	    credentials.WithFetchTimeout(5*time.Second),
//	)
//	header, err := provider.AuthHeader(ctx)
//
// # Caches
//
// TokenCache and IssuerCache are process-wide by default (SharedTokenCache,
// SharedIssuerCache) and may be replaced per provider. Tokens are keyed by
// issuer, client ID and audience, so providers with different credentials
// never see each other's tokens. Concurrent refreshes
// are collapsed into one network round trip. A failed fetch leaves both
// caches untouched, so the next call simply retries; a successful discovery
// is never invalidated.
//
// # Observability
//
// Providers emit Prometheus metrics:
//   - frkr_mirror_credentials_requests_total
//   - frkr_mirror_credentials_cache_hits_total / cache_misses_total
//   - frkr_mirror_credentials_token_refresh_total
//   - frkr_mirror_credentials_discovery_total
//   - frkr_mirror_credentials_errors_total
package credentials
