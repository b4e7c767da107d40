// Package main provides unit tests for the frkr-mirror entry point.
package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/credentials"
	"github.com/frkr-io/frkr-mirror/internal/observability"
	"github.com/frkr-io/frkr-mirror/internal/transport"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("FRKR_TEST_GETENV_SET", "env-value")
	t.Setenv("FRKR_TEST_GETENV_EMPTY", "")

	assert.Equal(t, "env-value", getEnvOrDefault("FRKR_TEST_GETENV_SET", "default"))
	assert.Equal(t, "default", getEnvOrDefault("FRKR_TEST_GETENV_EMPTY", "default"))
	assert.Equal(t, "default", getEnvOrDefault("FRKR_TEST_GETENV_NOTSET", "default"))
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags, err := parseFlags(nil)
		require.NoError(t, err)

		assert.Equal(t, ":8080", flags.listenAddr)
		assert.Equal(t, ":9090", flags.metricsAddr)
		assert.Equal(t, "info", flags.logLevel)
		assert.Equal(t, "json", flags.logFormat)
		assert.False(t, flags.showVersion)
	})

	t.Run("explicit flags", func(t *testing.T) {
		flags, err := parseFlags([]string{
			"-config", "mirror.yaml",
			"-listen", ":8000",
			"-upstream", "http://app:3000",
			"-log-level", "debug",
			"-log-format", "console",
			"-metrics-addr", "",
			"-version",
		})
		require.NoError(t, err)

		assert.Equal(t, cliFlags{
			configPath:  "mirror.yaml",
			listenAddr:  ":8000",
			upstream:    "http://app:3000",
			logLevel:    "debug",
			logFormat:   "console",
			metricsAddr: "",
			showVersion: true,
		}, flags)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("FRKR_MIRROR_UPSTREAM", "http://env-app:3000")
		t.Setenv("FRKR_MIRROR_LISTEN", ":7000")

		flags, err := parseFlags([]string{"-listen", ":7100"})
		require.NoError(t, err)

		assert.Equal(t, "http://env-app:3000", flags.upstream)
		assert.Equal(t, ":7100", flags.listenAddr, "flag wins over environment")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"-nope"})
		assert.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		_, err := parseFlags([]string{"-h"})
		assert.ErrorIs(t, err, flag.ErrHelp)
	})
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printVersion(&buf)

	assert.Contains(t, buf.String(), "frkr-mirror version dev")
	assert.Contains(t, buf.String(), "Git commit: unknown")
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ingestUrl: http://ingest:8082
transport: http
routes:
  /api/orders: orders-stream
  /api/*: api-stream
auth:
  username: u
  password: p
`), 0o600))

	cfg, err := loadConfig(path, observability.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, "http://ingest:8082", cfg.IngestURL)
	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "/api/orders", cfg.Routes[0].Pattern)
	assert.Equal(t, config.DefaultGRPCAddress, cfg.GRPCAddress)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), observability.NopLogger())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: smoke-signals\n"), 0o600))

	_, err = loadConfig(path, observability.NopLogger())
	assert.Error(t, err)
}

func TestParseUpstream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		wantErr bool
	}{
		{raw: "http://app:3000"},
		{raw: "https://app.internal"},
		{raw: "", wantErr: true},
		{raw: "app:3000", wantErr: true},
		{raw: "/relative", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			u, err := parseUpstream(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, u.String())
		})
	}
}

func TestNewApplication_RequiresUpstream(t *testing.T) {
	t.Parallel()

	_, err := newApplication(config.DefaultConfig(), cliFlags{}, observability.NopLogger())
	assert.ErrorIs(t, err, errNoUpstream)
}

func TestNewApplication_UnknownTransport(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Transport = "smoke-signals"

	_, err := newApplication(cfg, cliFlags{upstream: "http://app:3000"}, observability.NopLogger())
	assert.ErrorIs(t, err, transport.ErrUnknownTransport)
}

func TestApplication_ProxiesAndMirrors(t *testing.T) {
	t.Parallel()

	var upstreamMu sync.Mutex
	var upstreamBodies []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		upstreamMu.Lock()
		upstreamBodies = append(upstreamBodies, string(b))
		upstreamMu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))
	t.Cleanup(upstream.Close)

	var mu sync.Mutex
	var ingested []*transport.Envelope
	var auths []string
	ingest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		env, err := transport.UnmarshalEnvelope(b)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		ingested = append(ingested, env)
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(ingest.Close)

	cfg := &config.MirrorConfig{
		IngestURL: ingest.URL,
		Transport: config.TransportHTTP,
		Routes: config.Routes{
			{Pattern: "/api/orders", StreamID: "orders-stream"},
			{Pattern: "/api/*", StreamID: "api-stream"},
			{Pattern: "*", StreamID: "default"},
		},
		Auth: config.AuthConfig{Username: "u", Password: "p"},
	}
	cfg.ApplyDefaults()

	app, err := newApplication(cfg, cliFlags{upstream: upstream.URL, metricsAddr: ":0"}, observability.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, app.metricsServer)

	proxy := httptest.NewServer(app.server.Handler)
	t.Cleanup(proxy.Close)

	resp, err := http.Post(proxy.URL+"/api/orders?id=7", "application/json", strings.NewReader(`{"sku":"a"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "created", string(body))
	upstreamMu.Lock()
	assert.Equal(t, []string{`{"sku":"a"}`}, upstreamBodies)
	upstreamMu.Unlock()

	// The mirror dispatches once the proxy handler returns, which can trail the response.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) == 1
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.mirror.Close(ctx))

	mu.Lock()
	require.Len(t, ingested, 1)
	assert.Equal(t, "orders-stream", ingested[0].StreamID)
	assert.Equal(t, "/api/orders", ingested[0].Request.Path)
	assert.Equal(t, `{"sku":"a"}`, ingested[0].Request.Body)
	assert.Equal(t, []string{credentials.BasicHeader("u", "p")}, auths)
	mu.Unlock()

	metrics := httptest.NewRecorder()
	app.metricsServer.Handler.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `frkr_mirror_middleware_requests_total{outcome="dispatched"} 1`)
	assert.Contains(t, metrics.Body.String(), `frkr_mirror_transport_sends_total{status="success",transport="http"} 1`)

	health := httptest.NewRecorder()
	app.metricsServer.Handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestApplication_UpstreamDown(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	cfg := config.DefaultConfig()
	cfg.StreamID = "s"
	cfg.IngestURL = upstream.URL

	app, err := newApplication(cfg, cliFlags{upstream: upstream.URL}, observability.NopLogger())
	require.NoError(t, err)
	assert.Nil(t, app.metricsServer)

	rec := httptest.NewRecorder()
	app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, app.shutdown(ctx, observability.NopLogger()))
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(upstream.Close)

	app, err := newApplication(config.DefaultConfig(), cliFlags{
		upstream:    upstream.URL,
		listenAddr:  "127.0.0.1:0",
		metricsAddr: "127.0.0.1:0",
	}, observability.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, run(ctx, app, observability.NopLogger()))
}

func TestRun_BindFailure(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(upstream.Close)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	app, err := newApplication(config.DefaultConfig(), cliFlags{
		upstream:   upstream.URL,
		listenAddr: busy.Addr().String(),
	}, observability.NopLogger())
	require.NoError(t, err)

	assert.Error(t, run(context.Background(), app, observability.NopLogger()))
}
