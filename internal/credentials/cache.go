package credentials

import (
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// RefreshMargin is how long before expiry a cached token stops being used.
const RefreshMargin = 60 * time.Second

var (
	sharedTokens     *TokenCache
	sharedTokensOnce sync.Once

	sharedIssuers     *IssuerCache
	sharedIssuersOnce sync.Once
)

// SharedTokenCache returns the process-wide token cache.
func SharedTokenCache() *TokenCache {
	sharedTokensOnce.Do(func() {
		sharedTokens = NewTokenCache()
	})
	return sharedTokens
}

// SharedIssuerCache returns the process-wide issuer discovery cache.
func SharedIssuerCache() *IssuerCache {
	sharedIssuersOnce.Do(func() {
		sharedIssuers = NewIssuerCache()
	})
	return sharedIssuers
}

// TokenKey identifies the credentials a token was issued for.
type TokenKey struct {
	Issuer   string
	ClientID string
	Audience string
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds bearer tokens and their expiry, one per TokenKey.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[TokenKey]cachedToken
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[TokenKey]cachedToken)}
}

// Get returns the token cached for key if now is before its expiry minus
// RefreshMargin.
func (c *TokenCache) Get(key TokenKey, now time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.tokens[key]
	if !ok || entry.token == "" || !now.Before(entry.expiresAt.Add(-RefreshMargin)) {
		return "", false
	}
	return entry.token, true
}

// Store replaces the token cached for key. Last write wins.
func (c *TokenCache) Store(key TokenKey, token string, expiresAt time.Time) {
	c.mu.Lock()
	c.tokens[key] = cachedToken{token: token, expiresAt: expiresAt}
	c.mu.Unlock()
}

// ExpiresAt returns the expiry of the token cached for key, zero when absent.
func (c *TokenCache) ExpiresAt(key TokenKey) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key].expiresAt
}

// IssuerCache holds discovered issuers keyed by issuer URL. Entries are
// never evicted.
type IssuerCache struct {
	mu      sync.RWMutex
	issuers map[string]*oidc.Provider
}

// NewIssuerCache creates an empty issuer cache.
func NewIssuerCache() *IssuerCache {
	return &IssuerCache{issuers: make(map[string]*oidc.Provider)}
}

// Get returns the discovered issuer for url.
func (c *IssuerCache) Get(url string) (*oidc.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.issuers[url]
	return p, ok
}

// Store records a discovered issuer. Racing writers store equivalent values.
func (c *IssuerCache) Store(url string, provider *oidc.Provider) {
	c.mu.Lock()
	c.issuers[url] = provider
	c.mu.Unlock()
}

// Len returns the number of discovered issuers.
func (c *IssuerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.issuers)
}
