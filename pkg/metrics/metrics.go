// Package metrics exposes Prometheus counters for the processing job and
// the HTTP API on a private registry served at GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the server records.
type Metrics struct {
	registry *prometheus.Registry

	ProcessRuns   *prometheus.CounterVec
	ProcessTime   prometheus.Histogram
	SiteResults   *prometheus.CounterVec
	SlackPosts    *prometheus.CounterVec
	SheetFetches  *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// New registers the collectors, plus the Go runtime and process ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProcessRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carga",
			Name:      "process_runs_total",
			Help:      "Processing runs by trigger (manual, schedule).",
		}, []string{"trigger"}),
		ProcessTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carga",
			Name:      "process_run_seconds",
			Help:      "Duration of a full processing run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		SiteResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carga",
			Name:      "site_results_total",
			Help:      "Per-site processing outcomes.",
		}, []string{"status"}),
		SlackPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carga",
			Name:      "slack_posts_total",
			Help:      "Slack webhook posts by result.",
		}, []string{"result"}),
		SheetFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carga",
			Name:      "sheet_reads_total",
			Help:      "Spreadsheet reads by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carga",
			Name:      "http_requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carga",
			Name:      "http_request_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProcessRuns, m.ProcessTime, m.SiteResults, m.SlackPosts,
		m.SheetFetches, m.HTTPRequests, m.HTTPDurations,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished API request.
func (m *Metrics) ObserveRequest(method string, status int, took time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDurations.WithLabelValues(method).Observe(took.Seconds())
}

// Result labels an outcome as "ok" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
