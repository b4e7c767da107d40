package credentials

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")

	m.RecordRequest(TypeBasic, "success", time.Millisecond)
	m.RecordRequest(TypeBasic, "success", time.Millisecond)
	m.RecordRefresh(TypeClientCredentials, "error", time.Second)
	m.RecordDiscovery("success")
	m.RecordError(TypeClientCredentials, "grant")
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	expiry := time.Unix(1700000000, 0)
	m.SetTokenExpiry(TypeClientCredentials, expiry)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues(TypeBasic, "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tokenRefreshTotal.WithLabelValues(TypeClientCredentials, "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.discoveryTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsTotal.WithLabelValues(TypeClientCredentials, "grant")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(m.tokenExpiry.WithLabelValues(TypeClientCredentials)))
}

func TestMetrics_MustRegister(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_register")
	reg := prometheus.NewRegistry()

	assert.NotPanics(t, func() { m.MustRegister(reg) })
	assert.Panics(t, func() { m.MustRegister(reg) }, "duplicate registration")
}

func TestGetSharedMetrics(t *testing.T) {
	t.Parallel()

	assert.Same(t, GetSharedMetrics(), GetSharedMetrics())
}
