package mirror

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/frkr-io/frkr-mirror/internal/config"
	"github.com/frkr-io/frkr-mirror/internal/credentials"
	"github.com/frkr-io/frkr-mirror/internal/observability"
	"github.com/frkr-io/frkr-mirror/internal/routing"
	"github.com/frkr-io/frkr-mirror/internal/transport"
)

// ErrInvalidConfig indicates a Mirror was constructed without a required
// collaborator.
var ErrInvalidConfig = errors.New("invalid mirror configuration")

// Mirror copies inbound requests to a frkr ingestion endpoint.
type Mirror struct {
	routing   *routing.Config
	provider  credentials.Provider
	transport transport.Transport

	logger            observability.Logger
	metrics           *Metrics
	credentialTimeout time.Duration
	deliveryTimeout   time.Duration
	maxBodyBytes      int64
	now               func() time.Time
	newRequestID      func() string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Mirror. A nil routing configuration mirrors nothing.
func New(
	rc *routing.Config,
	provider credentials.Provider,
	t transport.Transport,
	opts ...Option,
) (*Mirror, error) {
	if provider == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("credential provider is required"))
	}
	if t == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("transport is required"))
	}

	m := &Mirror{
		routing:           rc,
		provider:          provider,
		transport:         t,
		logger:            observability.NopLogger(),
		metrics:           GetSharedMetrics(),
		credentialTimeout: config.DefaultCredentialTimeout,
		deliveryTimeout:   config.DefaultDeliveryTimeout,
		maxBodyBytes:      config.DefaultMaxBodyBytes,
		now:               time.Now,
		newRequestID:      newRequestID,
	}

	for _, opt := range opts {
		opt(m)
	}

	if rc.Kind() == routing.KindNone {
		m.logger.Warn("no stream routing configured, requests will not be mirrored")
	}
	for _, pattern := range rc.DeadPatterns() {
		m.logger.Warn("route pattern can never match",
			observability.String("pattern", pattern),
		)
	}

	m.logger.Info("mirror initialized",
		observability.String("routing", rc.String()),
		observability.String("transport", t.Name()),
		observability.String("auth_type", provider.Type()),
	)

	return m, nil
}

// NewFromConfig creates a Mirror whose routing, credential provider and
// transport are all built from cfg. Unset fields fall back to the FRKR_*
// environment and then to built-in defaults.
func NewFromConfig(cfg *config.MirrorConfig, opts ...Option) (*Mirror, error) {
	if cfg == nil {
		cfg = &config.MirrorConfig{}
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve the logger and metrics the collaborators should share.
	shared := &Mirror{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(shared)
	}

	provider, err := credentials.NewProvider(&cfg.Auth,
		credentials.WithLogger(shared.logger),
		credentials.WithFetchTimeout(cfg.Timeouts.GetEffectiveCredential()),
	)
	if err != nil {
		return nil, err
	}

	t, err := transport.New(cfg, transport.WithLogger(shared.logger))
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithCredentialTimeout(cfg.Timeouts.GetEffectiveCredential()),
		WithDeliveryTimeout(cfg.Timeouts.GetEffectiveDelivery()),
		WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	return New(cfg.Routing(), provider, t, append(base, opts...)...)
}

// Handler wraps next with mirroring.
func (m *Mirror) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		finish := m.Capture(r)
		defer finish()
		next.ServeHTTP(w, r)
	})
}

// Middleware returns Handler as a func(http.Handler) http.Handler.
func (m *Mirror) Middleware() func(http.Handler) http.Handler {
	return m.Handler
}

// Gin returns the mirror as gin middleware.
func (m *Mirror) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		finish := m.Capture(c.Request)
		defer finish()
		c.Next()
	}
}

// Capture starts mirroring r and returns the function that completes it once
// the host handler has returned. Capture never reads r.Body: the envelope
// carries the body bytes the host handler consumed. Credentials and delivery
// are handled on a detached goroutine. Neither Capture nor finish blocks or
// panics.
func (m *Mirror) Capture(r *http.Request) (finish func()) {
	finish = func() {}
	defer m.recoverPanic(r.Method, requestPath(r))

	if m.isClosed() {
		m.metrics.RecordRequest(OutcomeClosed)
		return finish
	}

	view := snapshotRequest(r)

	// Path routing is decided before the host runs so unmatched requests are
	// left untouched. Dynamic routing may inspect the body and runs in finish.
	var streamID string
	if m.routing.Kind() != routing.KindDynamic {
		id, ok := m.routing.Resolve(view)
		if !ok || id == "" {
			m.metrics.RecordRequest(OutcomeNoMatch)
			return finish
		}
		streamID = id
	}

	body := m.recordBody(r)
	return func() { m.complete(view, body, streamID) }
}

// complete builds the envelope from the request snapshot and the recorded
// body, and dispatches it.
func (m *Mirror) complete(view *routing.RequestView, body *bodyRecorder, streamID string) {
	defer m.recoverPanic(view.Method, routing.NormalizePath(view))

	captured, truncated := body.captured()
	if truncated {
		m.metrics.RecordBodyTruncated()
	}
	view.Body = captured

	if streamID == "" {
		id, ok := m.routing.Resolve(view)
		if !ok || id == "" {
			m.metrics.RecordRequest(OutcomeNoMatch)
			return
		}
		streamID = id
	}

	env := m.buildEnvelope(streamID, view)
	logger := m.logger.With(
		observability.String("stream_id", streamID),
		observability.String("request_id", env.Request.RequestID),
	)

	if !m.dispatch(env, logger) {
		m.metrics.RecordRequest(OutcomeClosed)
	}
}

// recoverPanic must be deferred directly.
func (m *Mirror) recoverPanic(method, path string) {
	if rec := recover(); rec != nil {
		m.metrics.RecordRequest(OutcomePanic)
		m.logger.Error("panic recovered in mirror",
			observability.String("path", path),
			observability.String("method", method),
			observability.Any("error", rec),
			observability.String("stack", string(debug.Stack())),
		)
	}
}

// dispatch starts a detached goroutine that obtains the Authorization value
// and delivers env. It reports false when the mirror has been closed.
func (m *Mirror) dispatch(env *transport.Envelope, logger observability.Logger) bool {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return false
	}
	m.wg.Add(1)
	m.mu.RUnlock()

	m.metrics.inFlight.Inc()

	go func() {
		defer m.wg.Done()
		defer m.metrics.inFlight.Dec()
		defer func() {
			if rec := recover(); rec != nil {
				m.metrics.RecordRequest(OutcomePanic)
				logger.Error("panic recovered in mirror delivery",
					observability.Any("error", rec),
					observability.String("stack", string(debug.Stack())),
				)
			}
		}()

		base := observability.ContextWithRequestID(context.Background(), env.Request.RequestID)

		authCtx, cancel := context.WithTimeout(base, m.credentialTimeout)
		authHeader, err := m.provider.AuthHeader(authCtx)
		cancel()
		if err != nil {
			m.metrics.RecordRequest(OutcomeAuthFailed)
			logger.Warn("skipping mirror, no authorization available",
				observability.String("auth_type", m.provider.Type()),
				observability.Error(err),
			)
			return
		}
		m.metrics.RecordRequest(OutcomeDispatched)

		ctx, cancel := context.WithTimeout(base, m.deliveryTimeout)
		defer cancel()

		start := time.Now()
		if err := m.transport.Send(ctx, env, authHeader); err != nil {
			m.metrics.RecordDelivery(env.StreamID, "error", time.Since(start))
			logger.Debug("mirror delivery did not complete", observability.Error(err))
			return
		}
		m.metrics.RecordDelivery(env.StreamID, "success", time.Since(start))
	}()

	return true
}

// requestPath returns r's path without assuming r.URL is set.
func requestPath(r *http.Request) string {
	if r.URL == nil {
		return r.RequestURI
	}
	return r.URL.Path
}

func (m *Mirror) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close stops mirroring new requests, waits for in-flight deliveries until
// ctx ends and then closes the transport. Requests arriving after Close are
// passed through unmirrored.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("mirror closed with deliveries still in flight", observability.Error(ctx.Err()))
		return ctx.Err()
	}

	if err := m.transport.Close(); err != nil {
		m.logger.Error("failed to close transport", observability.Error(err))
		return err
	}

	m.logger.Info("mirror closed")
	return nil
}

// newRequestID returns a time-ordered UUID, falling back to a random one.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
