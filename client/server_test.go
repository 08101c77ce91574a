package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/metrics"
)

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.ProcessRuns.WithLabelValues("schedule").Inc()
	m.SlackPosts.WithLabelValues("ok").Add(4)
	m.SlackPosts.WithLabelValues("error").Inc()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "carga-slack"})
	})
	mux.Handle("GET /metrics", m.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api := NewAPI(NewFileStore(t.TempDir()+"/credentials.json"), nil, Options{
		BaseURL:    srv.URL + "/api",
		HTTPClient: srv.Client(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Equal(t, srv.URL+"/metrics", api.MetricsURL())

	health, err := api.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	scraped, err := api.ServerMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scraped.WithLabel("carga_process_runs_total", "trigger", "schedule"))
	assert.Equal(t, map[string]float64{"ok": 4, "error": 1}, scraped.ByLabel("carga_slack_posts_total", "result"))
}

func TestServerMetricsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	api := NewAPI(NewFileStore(t.TempDir()+"/credentials.json"), nil, Options{
		BaseURL:    srv.URL + "/api",
		HTTPClient: srv.Client(),
	})
	_, err := api.ServerMetrics(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
