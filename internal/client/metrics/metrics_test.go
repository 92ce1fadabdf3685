package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("GET", "ok", 0.01)
	m.Retry()
	m.Refresh(true)
	m.Refresh(false)
	m.RefreshShared()
	m.SessionExpired()
	m.SetAuthenticated(true)

	gathered, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(gathered))
	for _, mf := range gathered {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"schooldesk_api_requests_total",
		"schooldesk_api_request_duration_seconds",
		"schooldesk_api_retries_total",
		"schooldesk_token_refreshes_total",
		"schooldesk_token_refresh_shared_total",
		"schooldesk_sessions_expired_total",
		"schooldesk_session_authenticated",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Refresh(true)
	m.Refresh(true)
	m.Refresh(false)
	m.SetAuthenticated(true)
	m.SetAuthenticated(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Authenticated))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "ok", 1)
		m.Retry()
		m.Refresh(true)
		m.RefreshShared()
		m.SessionExpired()
		m.SetAuthenticated(true)
	})
}

func TestTotals(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("GET", "ok", 0.1)
	m.ObserveRequest("POST", "api_error", 0.2)
	m.ObserveRequest("GET", "network_error", 0.3)
	m.Refresh(true)
	m.Refresh(false)
	m.SetAuthenticated(true)

	got, err := Totals(reg)
	require.NoError(t, err)

	assert.Equal(t, 3.0, got["schooldesk_api_requests_total"])
	assert.Equal(t, 3.0, got["schooldesk_api_request_duration_seconds"])
	assert.Equal(t, 2.0, got["schooldesk_token_refreshes_total"])
	assert.Equal(t, 1.0, got["schooldesk_session_authenticated"])
	assert.Equal(t, 0.0, got["schooldesk_api_retries_total"])
}
