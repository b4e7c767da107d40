package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/credentials"
	"github.com/frkr-io/frkr-mirror/internal/mirror"
	"github.com/frkr-io/frkr-mirror/internal/observability"
	"github.com/frkr-io/frkr-mirror/internal/transport"
)

// errNoUpstream is returned when no upstream URL was given.
var errNoUpstream = errors.New("upstream URL is required (-upstream or FRKR_MIRROR_UPSTREAM)")

// application holds all application components.
type application struct {
	mirror        *mirror.Mirror
	server        *http.Server
	metricsServer *http.Server
	registry      *prometheus.Registry
	config        *config.MirrorConfig
}

// newApplication wires the credential provider, transport and mirror in front
// of a reverse proxy to the upstream application.
func newApplication(cfg *config.MirrorConfig, flags cliFlags, logger observability.Logger) (*application, error) {
	upstream, err := parseUpstream(flags.upstream)
	if err != nil {
		return nil, err
	}

	credentialMetrics := credentials.NewMetrics("")
	transportMetrics := transport.NewMetrics("")
	mirrorMetrics := mirror.NewMetrics("")
	registry := observability.NewRegistry(credentialMetrics, transportMetrics, mirrorMetrics)

	provider, err := credentials.NewProvider(&cfg.Auth,
		credentials.WithLogger(logger),
		credentials.WithMetrics(credentialMetrics),
		credentials.WithFetchTimeout(cfg.Timeouts.GetEffectiveCredential()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential provider: %w", err)
	}

	tr, err := transport.New(cfg,
		transport.WithLogger(logger),
		transport.WithMetrics(transportMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	m, err := mirror.New(cfg.Routing(), provider, tr,
		mirror.WithLogger(logger),
		mirror.WithMetrics(mirrorMetrics),
		mirror.WithCredentialTimeout(cfg.Timeouts.GetEffectiveCredential()),
		mirror.WithDeliveryTimeout(cfg.Timeouts.GetEffectiveDelivery()),
		mirror.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("failed to create mirror: %w", err)
	}

	app := &application{
		mirror: m,
		server: &http.Server{
			Addr:              flags.listenAddr,
			Handler:           m.Handler(newUpstreamProxy(upstream, logger)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: registry,
		config:   cfg,
	}

	if flags.metricsAddr != "" {
		app.metricsServer = createMetricsServer(flags.metricsAddr, registry, logger)
	}

	return app, nil
}

// parseUpstream validates the upstream URL.
func parseUpstream(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errNoUpstream
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host are required", raw)
	}
	return u, nil
}

// newUpstreamProxy returns a reverse proxy to upstream that answers 502 when
// the upstream cannot be reached.
func newUpstreamProxy(upstream *url.URL, logger observability.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}
