// Package metrics holds the Prometheus collectors recorded by the API client
// and the session manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the console's collectors. A nil *Metrics is valid and
// records nothing, so components can be built without one in tests.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    prometheus.Counter
	RefreshesTotal  *prometheus.CounterVec
	RefreshWaiters  prometheus.Counter
	SessionsExpired prometheus.Counter
	Authenticated   prometheus.Gauge
}

// NewMetrics creates and registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schooldesk",
				Name:      "api_requests_total",
				Help:      "Total API requests by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome=ok/api_error/network_error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schooldesk",
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RetriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "schooldesk",
				Name:      "api_retries_total",
				Help:      "Requests re-issued after a token refresh",
			},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schooldesk",
				Name:      "token_refreshes_total",
				Help:      "Token refresh calls sent to the server",
			},
			[]string{"result"}, // result=ok/error
		),
		RefreshWaiters: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "schooldesk",
				Name:      "token_refresh_shared_total",
				Help:      "Callers that joined a refresh already in flight",
			},
		),
		SessionsExpired: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "schooldesk",
				Name:      "sessions_expired_total",
				Help:      "Sessions cleared because the server rejected them",
			},
		),
		Authenticated: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schooldesk",
				Name:      "session_authenticated",
				Help:      "1 while a user is signed in",
			},
		),
	}
}

func (m *Metrics) ObserveRequest(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.RefreshesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RefreshShared() {
	if m == nil {
		return
	}
	m.RefreshWaiters.Inc()
}

func (m *Metrics) SessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

func (m *Metrics) SetAuthenticated(v bool) {
	if m == nil {
		return
	}
	if v {
		m.Authenticated.Set(1)
		return
	}
	m.Authenticated.Set(0)
}

// Totals sums every counter and gauge gathered from g by family name.
// Histograms contribute their sample count. The console logs this on exit.
func Totals(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[mf.GetName()] = sum
	}
	return out, nil
}
