package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// AuthorizationMetadataKey carries the Authorization value on ingest calls.
const AuthorizationMetadataKey = "authorization"

// GRPCTransport invokes IngestService/Ingest over one lazily created client
// connection that is reused for every send.
type GRPCTransport struct {
	address  string
	dialOpts []grpc.DialOption
	logger   observability.Logger
	metrics  *Metrics

	mu     sync.Mutex
	conn   *grpc.ClientConn
	closed bool
}

// NewGRPCTransport creates a gRPC transport for address. No connection is
// made until the first Send.
func NewGRPCTransport(address string, opts ...Option) *GRPCTransport {
	o := applyOptions(opts)

	return &GRPCTransport{
		address:  address,
		dialOpts: append(defaultDialOptions(), o.dialOpts...),
		logger: o.logger.With(
			observability.String("transport", NameGRPC),
			observability.String("address", address),
		),
		metrics: o.metrics,
	}
}

// defaultDialOptions returns the dial options used for every connection.
func defaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// Name returns the transport name.
func (t *GRPCTransport) Name() string {
	return NameGRPC
}

// Address returns the target address.
func (t *GRPCTransport) Address() string {
	return t.address
}

// Send invokes Ingest with env and the Authorization value as metadata.
// Failures are logged and returned as *DeliveryError.
func (t *GRPCTransport) Send(ctx context.Context, env *Envelope, authHeader string) error {
	start := time.Now()

	err := t.send(ctx, env, authHeader)
	if err != nil {
		t.metrics.RecordSend(NameGRPC, "error", time.Since(start))
		t.logger.Error("mirror delivery failed",
			observability.String("stream_id", env.StreamID),
			observability.String("request_id", env.Request.RequestID),
			observability.Error(err),
		)
		return err
	}

	t.metrics.RecordSend(NameGRPC, "success", time.Since(start))
	t.logger.Debug("mirror delivered",
		observability.String("stream_id", env.StreamID),
		observability.String("request_id", env.Request.RequestID),
		observability.Duration("duration", time.Since(start)),
	)
	return nil
}

func (t *GRPCTransport) send(ctx context.Context, env *Envelope, authHeader string) error {
	schema, err := LoadIngestSchema()
	if err != nil {
		return NewDeliveryError(NameGRPC, 0, err)
	}

	conn, err := t.connection()
	if err != nil {
		return NewDeliveryError(NameGRPC, 0, err)
	}

	if authHeader != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, AuthorizationMetadataKey, authHeader)
	}

	req := schema.NewIngestRequest(env)
	resp := schema.NewIngestResponse()
	if err := conn.Invoke(ctx, IngestMethod, req, resp); err != nil {
		return NewDeliveryError(NameGRPC, 0, err)
	}
	return nil
}

// connection returns the shared connection, creating it if necessary.
func (t *GRPCTransport) connection() (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	if t.conn != nil {
		if t.conn.GetState() != connectivity.Shutdown {
			return t.conn, nil
		}
		t.conn = nil
	}

	t.logger.Debug("creating gRPC connection")

	// grpc.NewClient does not block; the connection is established on first use.
	conn, err := grpc.NewClient(t.address, t.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", t.address, err)
	}
	t.conn = conn

	t.logger.Info("created gRPC connection")

	return conn, nil
}

// Close closes the connection. Sends after Close fail with ErrClosed.
func (t *GRPCTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	return err
}

// Ensure GRPCTransport implements Transport.
var _ Transport = (*GRPCTransport)(nil)
