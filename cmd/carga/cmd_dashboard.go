package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cargaslack/carga/client"
	"github.com/cargaslack/carga/dashboard"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/ws"
)

func (a *app) dashboardCmd() *cobra.Command {
	var (
		limit  int
		sortBy string
		desc   bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Stats, top margins, squad totals and recent logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			v := client.NewDashboardView(a.sites, a.dash, a.loc.T("dashboard.noSquad"))
			v.SetLogLimit(limit)
			if sortBy != "" {
				column, err := dashboard.ParseColumn(sortBy)
				if err != nil {
					return err
				}
				if current, _ := v.Sort(); current != column {
					v.SortBy(column)
				}
			}
			if cmd.Flags().Changed("desc") {
				if column, current := v.Sort(); current != desc {
					v.SortBy(column)
				}
			}

			v.Load(cmd.Context())
			if err := a.expired(); err != nil {
				return err
			}
			a.printDashboard(v)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", client.DefaultLogLimit, "log rows to fetch")
	cmd.Flags().StringVar(&sortBy, "sort", "", "log column: created_at, site, status, squad, investimento, receita, roas, mc")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func (a *app) printDashboard(v *client.DashboardView) {
	s := v.Summary()
	lastUpdate := "-"
	if stats := v.Stats(); stats != nil {
		lastUpdate = formatTime(stats.LastUpdate)
	}

	a.printf("%s\n", renderTable(
		[]string{"Sites", "Ativos", "Squads", "Atividade recente", "Última atualização"},
		[][]string{{strconv.Itoa(s.TotalSites), strconv.Itoa(s.ActiveSites), strconv.Itoa(s.Squads), strconv.Itoa(s.RecentActivity), lastUpdate}},
	))

	if len(s.Top) > 0 {
		rows := make([][]string, 0, len(s.Top))
		for i, m := range s.Top {
			rows = append(rows, []string{strconv.Itoa(i + 1), m.Site, m.Squad, formatBRL(m.MC)})
		}
		a.printf("%s\n%s\n", title("Top 3 MC"), renderTable([]string{"#", "Site", "Squad", "MC"}, rows))
	}

	if s.HasTotal {
		rows := make([][]string, 0, len(s.Rollups)+1)
		for _, r := range s.Rollups {
			rows = append(rows, rollupRow(r.Squad, r))
		}
		rows = append(rows, rollupRow("Total", s.Total))
		a.printf("%s\n%s\n", title("Squads"),
			renderTable([]string{"Squad", "Sites", "Investimento", "Receita", "ROAS", "MC"}, rows))
	}

	logs := v.Logs()
	rows := make([][]string, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, logRow(log, v.SquadOf(log)))
	}
	column, desc := v.Sort()
	order := "asc"
	if desc {
		order = "desc"
	}
	a.printf("%s\n%s\n", title(fmt.Sprintf("Logs (%s %s)", column, order)), renderTable(logHeaders, rows))
}

func rollupRow(name string, r dashboard.SquadRollup) []string {
	return []string{
		name, strconv.Itoa(r.Sites), formatBRL(r.Investimento), formatBRL(r.Receita),
		dashboard.FormatRatio(r.ROAS()), formatBRL(r.MC()),
	}
}

func (a *app) logsCmd() *cobra.Command {
	var (
		limit  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show processing logs, optionally following new ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			ctx := cmd.Context()

			sites := a.sites.GetAll(ctx, models.SiteFilter{})
			resolver := dashboard.NewSquadResolver(sites, a.loc.T("dashboard.noSquad"))
			logs := a.dash.GetLogs(ctx, limit)
			if err := a.expired(); err != nil {
				return err
			}
			rows := make([][]string, 0, len(logs))
			for _, log := range logs {
				rows = append(rows, logRow(log, resolver.Bucket(log.SiteName)))
			}
			a.printf("%s\n", renderTable(logHeaders, rows))

			if !follow {
				return nil
			}
			return a.api.Watch(ctx, func(e client.Event) {
				a.printEvent(e, resolver)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", client.DefaultLogLimit, "log rows to fetch")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new logs until interrupted")
	return cmd
}

func (a *app) printEvent(e client.Event, resolver *dashboard.SquadResolver) {
	switch e.Op {
	case ws.OpLogCreated:
		var log ws.LogCreatedData
		if json.Unmarshal(e.Data, &log) != nil {
			return
		}
		created := log.CreatedAt
		a.printf("%s  %-24s %-16s %s  %s\n", formatTime(&created), log.SiteName,
			resolver.Bucket(log.SiteName), statusText(string(log.Status)), log.Message)
	case ws.OpProcessingStarted:
		var d ws.ProcessingStartedData
		if json.Unmarshal(e.Data, &d) == nil {
			a.printf("%s run %s started (%s, %d sites)\n", title("»"), d.RunID, d.Trigger, d.Sites)
		}
	case ws.OpProcessingFinished:
		var d ws.ProcessingFinishedData
		if json.Unmarshal(e.Data, &d) == nil {
			a.printf("%s run %s finished: %d ok, %d failed\n", title("«"), d.RunID, d.Succeeded, d.Failed)
		}
	case ws.OpReady:
		a.printf("Following live logs since %s\n", time.Now().Format("15:04:05"))
	}
}

func (a *app) processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Start a processing run now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if !a.dash.TriggerManualProcessing(cmd.Context()) {
				if err := a.expired(); err != nil {
					return err
				}
				return fmt.Errorf("processing was not started (cooldown or server error)")
			}
			a.printf("Processing requested\n")
			return nil
		},
	}
}
