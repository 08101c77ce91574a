package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cargaslack/carga/pkg/promparse"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Server health and processing counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := a.api.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("server unreachable at %s: %w", a.api.BaseURL(), err)
			}
			a.printf("%s %s (%s)\n\n", title("Server"), statusText(health.Status), health.Service)

			m, err := a.api.ServerMetrics(cmd.Context())
			if err != nil {
				a.logger.Debug("metrics unavailable")
				a.printf("Metrics unavailable at %s: %v\n", a.api.MetricsURL(), err)
				return nil
			}
			a.printf("%s\n", renderTable([]string{"Metric", "Breakdown", "Total"}, statusRows(m)))
			return nil
		},
	}
}

func statusRows(m *promparse.Metrics) [][]string {
	rows := [][]string{
		breakdownRow(m, "Runs", "carga_process_runs_total", "trigger"),
		breakdownRow(m, "Sites", "carga_site_results_total", "status"),
		breakdownRow(m, "Slack posts", "carga_slack_posts_total", "result"),
		breakdownRow(m, "Sheet reads", "carga_sheet_reads_total", "result"),
		breakdownRow(m, "API requests", "carga_http_requests_total", "code"),
	}
	mean := "-"
	if v, ok := m.HistogramMean("carga_process_run_seconds"); ok {
		mean = strconv.FormatFloat(v, 'f', 1, 64) + "s"
	}
	return append(rows, []string{"Run time", "mean", mean})
}

// breakdownRow prints "manual=2 schedule=5" with the keys sorted.
func breakdownRow(m *promparse.Metrics, label, name, key string) []string {
	parts := m.ByLabel(name, key)
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	breakdown := "-"
	for i, k := range keys {
		entry := k + "=" + strconv.FormatFloat(parts[k], 'f', -1, 64)
		if i == 0 {
			breakdown = entry
		} else {
			breakdown += " " + entry
		}
	}
	return []string{label, breakdown, strconv.FormatFloat(m.Sum(name), 'f', -1, 64)}
}
