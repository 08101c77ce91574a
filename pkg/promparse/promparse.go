// Package promparse reads a Prometheus text page back into numbers, so the
// CLI can summarize GET /metrics without a Prometheus server.
//
//	m, err := promparse.Parse(resp.Body)
//	runs := m.ByLabel("carga_process_runs_total", "trigger") // {"manual": 3, "schedule": 12}
//	avg, ok := m.HistogramMean("carga_process_run_seconds")
package promparse

import (
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metrics is one parsed scrape.
type Metrics struct {
	families map[string]*dto.MetricFamily
}

// Parse reads the text exposition format.
func Parse(r io.Reader) (*Metrics, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, err
	}
	return &Metrics{families: families}, nil
}

// Has reports whether the scrape contains the family.
func (m *Metrics) Has(name string) bool {
	_, ok := m.families[name]
	return ok
}

// Sum adds every series of name. Histograms and summaries count
// observations.
func (m *Metrics) Sum(name string) float64 {
	var total float64
	for _, metric := range m.series(name) {
		total += value(metric)
	}
	return total
}

// WithLabel sums the series whose label key equals val.
func (m *Metrics) WithLabel(name, key, val string) float64 {
	var total float64
	for _, metric := range m.series(name) {
		if label(metric, key) == val {
			total += value(metric)
		}
	}
	return total
}

// ByLabel groups the series of name by one label. Series without the
// label are grouped under "".
func (m *Metrics) ByLabel(name, key string) map[string]float64 {
	out := make(map[string]float64)
	for _, metric := range m.series(name) {
		out[label(metric, key)] += value(metric)
	}
	return out
}

// HistogramMean is sum/count across every series of a histogram.
func (m *Metrics) HistogramMean(name string) (float64, bool) {
	var sum float64
	var count uint64
	for _, metric := range m.series(name) {
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sum += h.GetSampleSum()
		count += h.GetSampleCount()
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func (m *Metrics) series(name string) []*dto.Metric {
	family, ok := m.families[name]
	if !ok {
		return nil
	}
	return family.GetMetric()
}

func value(metric *dto.Metric) float64 {
	switch {
	case metric.Counter != nil:
		return metric.GetCounter().GetValue()
	case metric.Gauge != nil:
		return metric.GetGauge().GetValue()
	case metric.Untyped != nil:
		return metric.GetUntyped().GetValue()
	case metric.Histogram != nil:
		return float64(metric.GetHistogram().GetSampleCount())
	case metric.Summary != nil:
		return float64(metric.GetSummary().GetSampleCount())
	}
	return 0
}

func label(metric *dto.Metric, key string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == key {
			return pair.GetValue()
		}
	}
	return ""
}
