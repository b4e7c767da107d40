package config

import (
	"time"

	"github.com/frkr-io/frkr-mirror/internal/routing"
)

// Transport names.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Built-in defaults.
const (
	DefaultIngestURL          = "http://localhost:8082"
	DefaultGRPCAddress        = "localhost:50051"
	DefaultAudience           = "https://api.frkr.io"
	DefaultUsername           = "testuser"
	DefaultPassword           = "testpass"
	DefaultCredentialTimeout  = 5 * time.Second
	DefaultDeliveryTimeout    = 10 * time.Second
	DefaultMaxBodyBytes int64 = 1 << 20
)

// MirrorConfig is the complete mirroring configuration.
type MirrorConfig struct {
	// IngestURL is the base URL of the HTTP ingestion endpoint.
	IngestURL string `yaml:"ingestUrl,omitempty" json:"ingestUrl,omitempty"`

	// Transport selects the wire protocol: http or grpc.
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`

	// GRPCAddress is the host:port of the gRPC ingestion endpoint.
	GRPCAddress string `yaml:"grpcAddress,omitempty" json:"grpcAddress,omitempty"`

	// StreamID routes every request to one stream. Ignored when Routes is set.
	StreamID string `yaml:"streamId,omitempty" json:"streamId,omitempty"`

	// Routes maps path patterns to streams, in precedence order.
	Routes Routes `yaml:"routes,omitempty" json:"routes,omitempty"`

	Auth AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`

	Timeouts TimeoutConfig `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`

	// MaxBodyBytes caps how much of a request body is copied into the envelope.
	MaxBodyBytes int64 `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty"`

	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// AuthConfig configures how the ingestion endpoint is authenticated.
// Client credentials are used only when both ClientID and ClientSecret are set.
type AuthConfig struct {
	ClientID     string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`

	// Issuer is the identity provider URL. Takes precedence over AuthDomain.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// AuthDomain is expanded to https://{AuthDomain} when Issuer is empty.
	AuthDomain string `yaml:"authDomain,omitempty" json:"authDomain,omitempty"`

	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// TimeoutConfig bounds the two network operations a mirror performs.
type TimeoutConfig struct {
	Credential Duration `yaml:"credential,omitempty" json:"credential,omitempty"`
	Delivery   Duration `yaml:"delivery,omitempty" json:"delivery,omitempty"`
}

// CircuitBreakerConfig configures short-circuiting of a failing ingestion endpoint.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Threshold is the number of requests in the interval before the failure
	// ratio is considered.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Timeout is how long the breaker stays open.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *MirrorConfig {
	cfg := &MirrorConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with built-in defaults.
func (c *MirrorConfig) ApplyDefaults() {
	if c.IngestURL == "" {
		c.IngestURL = DefaultIngestURL
	}
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.GRPCAddress == "" {
		c.GRPCAddress = DefaultGRPCAddress
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = DefaultAudience
	}
	if c.Auth.Username == "" {
		c.Auth.Username = DefaultUsername
	}
	if c.Auth.Password == "" {
		c.Auth.Password = DefaultPassword
	}
	if c.Timeouts.Credential == 0 {
		c.Timeouts.Credential = Duration(DefaultCredentialTimeout)
	}
	if c.Timeouts.Delivery == 0 {
		c.Timeouts.Delivery = Duration(DefaultDeliveryTimeout)
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cb := c.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.Threshold == 0 {
			cb.Threshold = 5
		}
		if cb.Timeout == 0 {
			cb.Timeout = Duration(30 * time.Second)
		}
	}
}

// Routing builds the routing configuration: Routes when present, else
// StreamID, else nil (nothing is mirrored).
func (c *MirrorConfig) Routing() *routing.Config {
	var patterns []routing.Pattern
	if c.Routes != nil {
		patterns = c.Routes.Patterns()
	}
	return routing.FromOptions(c.StreamID, patterns, nil)
}

// UsesClientCredentials reports whether the client-credentials flow applies.
func (c *AuthConfig) UsesClientCredentials() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// IssuerURL returns the explicit issuer, or https://{AuthDomain}.
func (c *AuthConfig) IssuerURL() (string, bool) {
	switch {
	case c == nil:
		return "", false
	case c.Issuer != "":
		return c.Issuer, true
	case c.AuthDomain != "":
		return "https://" + c.AuthDomain, true
	default:
		return "", false
	}
}

// GetEffectiveAudience returns the audience or its default.
func (c *AuthConfig) GetEffectiveAudience() string {
	if c == nil || c.Audience == "" {
		return DefaultAudience
	}
	return c.Audience
}

// GetEffectiveUsername returns the basic-auth username or its default.
func (c *AuthConfig) GetEffectiveUsername() string {
	if c == nil || c.Username == "" {
		return DefaultUsername
	}
	return c.Username
}

// GetEffectivePassword returns the basic-auth password or its default.
func (c *AuthConfig) GetEffectivePassword() string {
	if c == nil || c.Password == "" {
		return DefaultPassword
	}
	return c.Password
}

// GetEffectiveCredential returns the credential timeout or its default.
func (c TimeoutConfig) GetEffectiveCredential() time.Duration {
	if c.Credential <= 0 {
		return DefaultCredentialTimeout
	}
	return c.Credential.Duration()
}

// GetEffectiveDelivery returns the delivery timeout or its default.
func (c TimeoutConfig) GetEffectiveDelivery() time.Duration {
	if c.Delivery <= 0 {
		return DefaultDeliveryTimeout
	}
	return c.Delivery.Duration()
}
