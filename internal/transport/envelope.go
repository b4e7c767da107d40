package transport

import (
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

var jsonConfig = sonic.ConfigStd

// Envelope is the captured request sent to the ingestion endpoint.
type Envelope struct {
	StreamID string      `json:"stream_id"`
	Request  RequestData `json:"request"`
}

// RequestData is the captured request metadata.
type RequestData struct {
	Method string `json:"method"`

	// Path is the normalized request path.
	Path string `json:"path"`

	Headers map[string]string `json:"headers"`

	// Body is the request body as text, empty when there was none.
	Body string `json:"body"`

	Query map[string]string `json:"query"`

	// TimestampNs is the capture time in nanoseconds since the Unix epoch.
	TimestampNs int64 `json:"timestamp_ns"`

	RequestID string `json:"request_id"`
}

// Marshal encodes the envelope as JSON. Nil maps are encoded as empty objects.
func (e *Envelope) Marshal() ([]byte, error) {
	out := *e
	if out.Request.Headers == nil {
		out.Request.Headers = map[string]string{}
	}
	if out.Request.Query == nil {
		out.Request.Query = map[string]string{}
	}
	return jsonConfig.Marshal(&out)
}

// UnmarshalEnvelope decodes a JSON envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := jsonConfig.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ValidText returns s with every byte that is not part of a valid UTF-8
// sequence replaced by U+FFFD, the same substitution the JSON encoder makes.
// Protobuf string fields reject invalid UTF-8, so every text field sent over
// gRPC goes through it.
func ValidText(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*utf8.UTFMax)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
