package mirror

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/frkr-io/frkr-mirror/internal/transport"
)

// stubProvider returns a fixed header or error.
type stubProvider struct {
	header   string
	err      error
	panicVal interface{}
	block    bool
	gate     chan struct{}
	calls    atomic.Int32
}

func (p *stubProvider) Type() string { return "stub" }

func (p *stubProvider) AuthHeader(ctx context.Context) (string, error) {
	p.calls.Add(1)
	if p.panicVal != nil {
		panic(p.panicVal)
	}
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.header, p.err
}

// recordingTransport captures envelopes. When release is non-nil every Send
// waits for it to be closed or for ctx to end.
type recordingTransport struct {
	mu      sync.Mutex
	envs    []*transport.Envelope
	auths   []string
	err     error
	release chan struct{}
	started chan struct{}
	closed  bool
}

func (t *recordingTransport) Send(ctx context.Context, env *transport.Envelope, authHeader string) error {
	if t.started != nil {
		t.started <- struct{}{}
	}
	if t.release != nil {
		select {
		case <-t.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.envs = append(t.envs, env)
	t.auths = append(t.auths, authHeader)
	return t.err
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *recordingTransport) envelopes() []*transport.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*transport.Envelope(nil), t.envs...)
}

func (t *recordingTransport) authorizations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.auths...)
}

func (t *recordingTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

var errDeliveryRefused = errors.New("connection refused")
