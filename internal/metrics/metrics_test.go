package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthAttempt("success")
		m.RateLimited("login")
		m.CSRFRejected()
		m.ResetEvent("requested")
		m.NotificationDelivered(true)
		m.ObserveHTTP("/x", http.MethodGet, 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.AuthAttempt("failure")
	m.AuthAttempt("failure")
	m.RateLimited("login")
	m.CSRFRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.csrfRejected))
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/v1/auth/login", http.MethodPost, 401, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="POST",route="/api/v1/auth/login",status="401"} 1`)
	assert.Contains(t, string(body), "http_request_duration_seconds_bucket")
}
