package transport

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const bufconnTarget = "passthrough:///bufnet"

func testEnvelope() *Envelope {
	return &Envelope{
		StreamID: "orders-stream",
		Request: RequestData{
			Method:      "POST",
			Path:        "/api/orders",
			Headers:     map[string]string{"content-type": "application/json", "x-trace": "a, b"},
			Body:        `{"id":1}`,
			Query:       map[string]string{"page": "2"},
			TimestampNs: 1700000000123000000,
			RequestID:   "0190d3f8-0000-7000-8000-000000000001",
		},
	}
}

// ingestServer is an in-memory IngestService.
type ingestServer struct {
	mu       sync.Mutex
	received []*Envelope
	auth     [][]string
	failCode codes.Code
}

func (s *ingestServer) envelopes() []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Envelope(nil), s.received...)
}

func (s *ingestServer) authorizations() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.auth...)
}

func (s *ingestServer) setFailCode(code codes.Code) {
	s.mu.Lock()
	s.failCode = code
	s.mu.Unlock()
}

// newIngestServer starts an IngestService on a bufconn listener and returns
// the dial option that reaches it.
func newIngestServer(t *testing.T) (*ingestServer, Option) {
	t.Helper()

	schema, err := LoadIngestSchema()
	require.NoError(t, err)

	s := &ingestServer{}
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != IngestMethod {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}

		req := dynamicpb.NewMessage(schema.Request)
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		md, _ := metadata.FromIncomingContext(stream.Context())

		s.mu.Lock()
		s.received = append(s.received, schema.EnvelopeFromMessage(req))
		s.auth = append(s.auth, md.Get(AuthorizationMetadataKey))
		code := s.failCode
		s.mu.Unlock()

		if code != codes.OK {
			return status.Error(code, "rejected")
		}

		resp := schema.NewIngestResponse()
		resp.Set(schema.Response.Fields().ByName("accepted"), protoreflect.ValueOfBool(true))
		return stream.SendMsg(resp)
	}))

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	return s, WithDialOptions(dialer)
}

// stubTransport records sends and returns a configurable error.
type stubTransport struct {
	mu     sync.Mutex
	calls  int
	err    error
	closed bool
}

func (s *stubTransport) Send(_ context.Context, _ *Envelope, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubTransport) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
