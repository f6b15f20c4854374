package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/metrics"
)

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = c.(prometheus.Metric).Write(m)
	return m.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	_ = gauge.(prometheus.Metric).Write(m)
	return m.GetGauge().GetValue()
}

func getHistogramCount(t *testing.T, hist *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	o, err := hist.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	_ = o.(prometheus.Metric).Write(m)
	return m.GetHistogram().GetSampleCount()
}

func TestHTTPMiddleware_RecordsRequestMetricsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.HTTPMiddleware)
	r.Get("/api/v1/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(r)
	defer server.Close()

	before := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/api/v1/devices/{id}", "200")
	beforeHist := getHistogramCount(t, metrics.HTTPRequestDuration, "GET", "/api/v1/devices/{id}")

	resp, err := http.Get(server.URL + "/api/v1/devices/dev-123")
	require.NoError(t, err)
	_ = resp.Body.Close()

	after := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/api/v1/devices/{id}", "200")
	afterHist := getHistogramCount(t, metrics.HTTPRequestDuration, "GET", "/api/v1/devices/{id}")

	assert.Equal(t, float64(1), after-before)
	assert.Equal(t, uint64(1), afterHist-beforeHist)
}

func TestHTTPMiddleware_Records404(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.HTTPMiddleware)

	server := httptest.NewServer(r)
	defer server.Close()

	before := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/nonexistent", "404")

	resp, err := http.Get(server.URL + "/nonexistent")
	require.NoError(t, err)
	_ = resp.Body.Close()

	after := getCounterValue(t, metrics.HTTPRequestsTotal, "GET", "/nonexistent", "404")
	assert.Equal(t, float64(1), after-before)
}

func TestActiveAgentsGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.ActiveAgents)
	metrics.ActiveAgents.Inc()
	after := getGaugeValue(t, metrics.ActiveAgents)
	assert.Equal(t, float64(1), after-before)

	metrics.ActiveAgents.Dec()
	afterDec := getGaugeValue(t, metrics.ActiveAgents)
	assert.Equal(t, before, afterDec)
}

func TestActiveAlertsGauge(t *testing.T) {
	before := getGaugeValue(t, metrics.ActiveAlerts)
	metrics.ActiveAlerts.Inc()
	after := getGaugeValue(t, metrics.ActiveAlerts)
	assert.Equal(t, float64(1), after-before)
	metrics.ActiveAlerts.Dec()
}

func TestMetricsRegistered(t *testing.T) {
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have registered metrics")
}
