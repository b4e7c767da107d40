package config

import (
	"os"
	"strconv"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvIngestURL    = "FRKR_INGEST_URL"
	EnvTransport    = "FRKR_TRANSPORT"
	EnvGRPCAddress  = "FRKR_GRPC_ADDRESS"
	EnvStreamID     = "FRKR_STREAM_ID"
	EnvClientID     = "FRKR_CLIENT_ID"
	EnvClientSecret = "FRKR_CLIENT_SECRET"
	EnvIssuer       = "FRKR_ISSUER"
	EnvAuthDomain   = "FRKR_AUTH_DOMAIN"
	EnvAudience     = "FRKR_AUDIENCE"
	EnvUsername     = "FRKR_USERNAME"
	EnvPassword     = "FRKR_PASSWORD"
	EnvMaxBodyBytes = "FRKR_MAX_BODY_BYTES"
)

// ApplyEnv fills fields left empty by explicit configuration from the
// environment. Explicit values are never overwritten.
func (c *MirrorConfig) ApplyEnv() {
	setFromEnv(&c.IngestURL, EnvIngestURL)
	setFromEnv(&c.Transport, EnvTransport)
	setFromEnv(&c.GRPCAddress, EnvGRPCAddress)
	setFromEnv(&c.StreamID, EnvStreamID)
	setFromEnv(&c.Auth.ClientID, EnvClientID)
	setFromEnv(&c.Auth.ClientSecret, EnvClientSecret)
	setFromEnv(&c.Auth.Issuer, EnvIssuer)
	setFromEnv(&c.Auth.AuthDomain, EnvAuthDomain)
	setFromEnv(&c.Auth.Audience, EnvAudience)
	setFromEnv(&c.Auth.Username, EnvUsername)
	setFromEnv(&c.Auth.Password, EnvPassword)

	if c.MaxBodyBytes == 0 {
		if n, err := strconv.ParseInt(os.Getenv(EnvMaxBodyBytes), 10, 64); err == nil {
			c.MaxBodyBytes = n
		}
	}
}

func setFromEnv(field *string, key string) {
	if *field != "" {
		return
	}
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}

// GetEnvOrDefault returns the environment variable value or a default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
