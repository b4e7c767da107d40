package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// IngestPath is appended to the base URL by HTTPTransport.
const IngestPath = "/ingest"

// maxDrainBytes bounds how much of a response body is read before closing.
const maxDrainBytes = 64 << 10

// HTTPTransport posts envelopes as JSON to {baseURL}/ingest.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	logger   observability.Logger
	metrics  *Metrics
}

// NewHTTPTransport creates an HTTP transport for baseURL.
func NewHTTPTransport(baseURL string, opts ...Option) *HTTPTransport {
	o := applyOptions(opts)

	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: config.DefaultDeliveryTimeout}
	}

	endpoint := strings.TrimRight(baseURL, "/") + IngestPath

	return &HTTPTransport{
		endpoint: endpoint,
		client:   client,
		logger: o.logger.With(
			observability.String("transport", NameHTTP),
			observability.String("endpoint", endpoint),
		),
		metrics: o.metrics,
	}
}

// Name returns the transport name.
func (t *HTTPTransport) Name() string {
	return NameHTTP
}

// Endpoint returns the full ingestion URL.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send posts env to the ingestion endpoint. Connection errors and non-2xx
// responses are logged and returned as *DeliveryError.
func (t *HTTPTransport) Send(ctx context.Context, env *Envelope, authHeader string) error {
	start := time.Now()

	err := t.send(ctx, env, authHeader)
	if err != nil {
		t.metrics.RecordSend(NameHTTP, "error", time.Since(start))
		t.logger.Error("mirror delivery failed",
			observability.String("stream_id", env.StreamID),
			observability.String("request_id", env.Request.RequestID),
			observability.Error(err),
		)
		return err
	}

	t.metrics.RecordSend(NameHTTP, "success", time.Since(start))
	t.logger.Debug("mirror delivered",
		observability.String("stream_id", env.StreamID),
		observability.String("request_id", env.Request.RequestID),
		observability.Duration("duration", time.Since(start)),
	)
	return nil
}

func (t *HTTPTransport) send(ctx context.Context, env *Envelope, authHeader string) error {
	body, err := env.Marshal()
	if err != nil {
		return NewDeliveryError(NameHTTP, 0, fmt.Errorf("encode envelope: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return NewDeliveryError(NameHTTP, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return NewDeliveryError(NameHTTP, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewDeliveryError(NameHTTP, resp.StatusCode, nil)
	}
	return nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// Ensure HTTPTransport implements Transport.
var _ Transport = (*HTTPTransport)(nil)
