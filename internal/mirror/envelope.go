package mirror

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/frkr-io/frkr-mirror/internal/routing"
	"github.com/frkr-io/frkr-mirror/internal/transport"
)

// buildEnvelope captures view for streamID. Header names are lower-cased and
// repeated values joined with ", "; repeated query values are joined with ",".
// Text that is not valid UTF-8 is coerced so every transport carries the same
// envelope.
func (m *Mirror) buildEnvelope(streamID string, view *routing.RequestView) *transport.Envelope {
	headers := make(map[string]string, len(view.Header))
	for name, values := range view.Header {
		key := transport.ValidText(strings.ToLower(name))
		value := transport.ValidText(strings.Join(values, ", "))
		if prev, ok := headers[key]; ok {
			headers[key] = prev + ", " + value
			continue
		}
		headers[key] = value
	}

	query := make(map[string]string, len(view.Query))
	for name, values := range view.Query {
		query[transport.ValidText(name)] = transport.ValidText(strings.Join(values, ","))
	}

	return &transport.Envelope{
		StreamID: streamID,
		Request: transport.RequestData{
			Method:      transport.ValidText(view.Method),
			Path:        transport.ValidText(routing.NormalizePath(view)),
			Headers:     headers,
			Body:        transport.ValidText(string(view.Body)),
			Query:       query,
			TimestampNs: m.now().UnixMilli() * 1e6,
			RequestID:   m.newRequestID(),
		},
	}
}

// snapshotRequest returns a view of r that stays valid after the host handler
// has modified r or returned.
func snapshotRequest(r *http.Request) *routing.RequestView {
	view := routing.NewRequestView(r, nil)
	view.Header = r.Header.Clone()
	return view
}

// bodyRecorder copies the bytes the host handler reads from a request body,
// up to limit. Reads are never delayed or added: the mirror sees exactly the
// prefix the host consumed.
type bodyRecorder struct {
	io.ReadCloser
	limit int64

	mu        sync.Mutex
	buf       bytes.Buffer
	truncated bool
}

// recordBody wraps r.Body in a bodyRecorder. It returns nil when capture is
// disabled or r has no body.
func (m *Mirror) recordBody(r *http.Request) *bodyRecorder {
	if m.maxBodyBytes < 0 || r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	rec := &bodyRecorder{ReadCloser: r.Body, limit: m.maxBodyBytes}
	r.Body = rec
	return rec
}

func (b *bodyRecorder) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.record(p[:n])
	}
	return n, err
}

func (b *bodyRecorder) record(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - int64(b.buf.Len())
	if int64(len(p)) > room {
		b.truncated = true
		p = p[:max(room, 0)]
	}
	b.buf.Write(p)
}

// captured returns a copy of the recorded bytes and whether the host read
// more than limit.
func (b *bodyRecorder) captured() ([]byte, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes()), b.truncated
}
