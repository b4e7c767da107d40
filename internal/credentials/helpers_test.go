package credentials

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeIssuer is an OIDC issuer serving discovery and a client-credentials
// token endpoint, counting calls to each.
type fakeIssuer struct {
	server *httptest.Server

	discoveries atomic.Int32
	grants      atomic.Int32

	discoveryStatus atomic.Int32
	tokenStatus     atomic.Int32
	expiresIn       atomic.Int64
	blocking        atomic.Bool
	block           chan struct{}

	mu       sync.Mutex
	lastForm map[string]string
}

func newFakeIssuer(t *testing.T, tls bool) *fakeIssuer {
	t.Helper()

	f := &fakeIssuer{block: make(chan struct{})}
	f.discoveryStatus.Store(http.StatusOK)
	f.tokenStatus.Store(http.StatusOK)
	f.expiresIn.Store(3600)

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		f.discoveries.Add(1)
		if status := int(f.discoveryStatus.Load()); status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                 f.server.URL,
			"authorization_endpoint": f.server.URL + "/authorize",
			"token_endpoint":         f.server.URL + "/oauth/token",
			"jwks_uri":               f.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.grants.Add(1)
		if f.blocking.Load() {
			<-f.block
		}
		_ = r.ParseForm()

		form := map[string]string{
			"grant_type": r.Form.Get("grant_type"),
			"audience":   r.Form.Get("audience"),
		}
		if id, secret, ok := r.BasicAuth(); ok {
			form["client_id"], form["client_secret"] = id, secret
		} else {
			form["client_id"], form["client_secret"] = r.Form.Get("client_id"), r.Form.Get("client_secret")
		}
		f.mu.Lock()
		f.lastForm = form
		f.mu.Unlock()

		if status := int(f.tokenStatus.Load()); status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}

		body := map[string]interface{}{
			"access_token": fmt.Sprintf("token-%d", n),
			"token_type":   "Bearer",
		}
		if exp := f.expiresIn.Load(); exp > 0 {
			body["expires_in"] = exp
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	if tls {
		f.server = httptest.NewTLSServer(mux)
	} else {
		f.server = httptest.NewServer(mux)
	}
	t.Cleanup(f.server.Close)
	// Runs before Close so blocked handlers can return.
	t.Cleanup(func() { close(f.block) })

	return f
}

func (f *fakeIssuer) form() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
