package main

import (
	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// loadConfig loads the configuration file, if any, then applies FRKR_*
// environment fallbacks and defaults and validates the result.
func loadConfig(configPath string, logger observability.Logger) (*config.MirrorConfig, error) {
	logger.Info("starting frkr-mirror",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg := &config.MirrorConfig{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	authType := "basic"
	if cfg.Auth.UsesClientCredentials() {
		authType = "client_credentials"
	}

	logger.Info("configuration loaded",
		observability.String("transport", cfg.Transport),
		observability.String("routing", cfg.Routing().String()),
		observability.Int("routes", len(cfg.Routes)),
		observability.String("auth_type", authType),
		observability.Bool("circuit_breaker", cfg.CircuitBreaker != nil && cfg.CircuitBreaker.Enabled),
	)

	return cfg, nil
}
