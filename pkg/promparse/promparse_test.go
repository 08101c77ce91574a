package promparse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/pkg/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) *Metrics {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	parsed, err := Parse(rec.Body)
	require.NoError(t, err)
	return parsed
}

func TestParseServerMetrics(t *testing.T) {
	m := metrics.New()
	m.ProcessRuns.WithLabelValues("manual").Add(2)
	m.ProcessRuns.WithLabelValues("schedule").Inc()
	m.ProcessTime.Observe(2)
	m.ProcessTime.Observe(4)
	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("POST", 429, time.Millisecond)

	p := scrape(t, m)

	assert.True(t, p.Has("carga_process_runs_total"))
	assert.False(t, p.Has("carga_missing_total"))
	assert.Equal(t, 3.0, p.Sum("carga_process_runs_total"))
	assert.Equal(t, 2.0, p.WithLabel("carga_process_runs_total", "trigger", "manual"))
	assert.Equal(t, map[string]float64{"200": 2, "429": 1}, p.ByLabel("carga_http_requests_total", "code"))
	assert.Equal(t, 3.0, p.Sum("carga_http_request_seconds"))

	mean, ok := p.HistogramMean("carga_process_run_seconds")
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)

	_, ok = p.HistogramMean("carga_missing_seconds")
	assert.False(t, ok)
}

func TestParseUntypedAndMalformed(t *testing.T) {
	p, err := Parse(strings.NewReader("queue_depth{queue=\"a,b\"} 4\nqueue_depth{queue=\"c\"} 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.WithLabel("queue_depth", "queue", "a,b"))
	assert.Equal(t, 5.0, p.Sum("queue_depth"))

	_, err = Parse(strings.NewReader("broken{ 1\n"))
	assert.Error(t, err)
}
